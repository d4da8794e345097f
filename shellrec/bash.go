package shellrec

type bashDialect struct{}

func (bashDialect) Name() string { return "bash" }

func (bashDialect) SetEnv(key, value string) string {
	return "export " + key + "='" + value + "'"
}

func (bashDialect) UnsetEnv(key string) string {
	return "unset " + key
}

func (bashDialect) SetShellVar(key, value string) string {
	return key + "='" + value + "'"
}

func (bashDialect) UnsetShellVar(key string) string {
	return "unset " + key
}

func (bashDialect) SetAlias(key, value string) string {
	return "alias " + key + "='" + value + "'"
}

func (bashDialect) UnsetAlias(key string) string {
	return "unalias " + key
}

func (bashDialect) Messages(lines []string, rawMsgDump bool) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, "echo '"+l+"'")
	}
	return out
}
