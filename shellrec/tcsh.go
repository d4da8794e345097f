package shellrec

type tcshDialect struct{}

func (tcshDialect) Name() string { return "tcsh" }

func (tcshDialect) SetEnv(key, value string) string {
	return "setenv " + key + " '" + value + "'"
}

func (tcshDialect) UnsetEnv(key string) string {
	return "unsetenv " + key
}

func (tcshDialect) SetShellVar(key, value string) string {
	return "set " + key + "='" + value + "'"
}

func (tcshDialect) UnsetShellVar(key string) string {
	return "unset " + key
}

func (tcshDialect) SetAlias(key, value string) string {
	return "alias " + key + " '" + value + "'"
}

func (tcshDialect) UnsetAlias(key string) string {
	return "unalias " + key
}

func (tcshDialect) Messages(lines []string, rawMsgDump bool) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, "echo '"+l+"'")
	}
	return out
}
