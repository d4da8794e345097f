package cmd

import (
	"github.com/spf13/cobra"
)

var availCmd = &cobra.Command{
	Use:   "avail",
	Short: "List every module discoverable on the search path",
	Args:  cobra.NoArgs,
	RunE:  runAvail,
}

// runAvail populates the database and writes every known name,
// sorted, via the shell recorder's Write.
func runAvail(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.close()

	if err := sess.db.Populate(nil); err != nil {
		return err
	}

	names, err := sess.db.GetAllModules(false)
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := sess.shell.Write(name.String()); err != nil {
			return err
		}
	}

	return sess.flush()
}
