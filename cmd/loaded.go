package cmd

import (
	"github.com/spf13/cobra"
)

var loadedCmd = &cobra.Command{
	Use:   "loaded",
	Short: "List currently loaded modules",
	Args:  cobra.NoArgs,
	RunE:  runLoaded,
}

// runLoaded writes each loaded module name, sorted ascending, via the
// shell recorder's Write.
func runLoaded(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.close()

	for _, name := range sess.env.LoadedNames() {
		if err := sess.shell.Write(name.String()); err != nil {
			return err
		}
	}

	return sess.flush()
}
