package cmd

import (
	"github.com/spf13/cobra"

	"pyenv/moduledb"
)

var loadFlags = struct {
	prefix string
	force  bool
}{}

var loadCmd = &cobra.Command{
	Use:   "load <module>...",
	Short: "Load one or more modules into the environment",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadFlags.prefix, "prefix", "", "string prepended to each module argument before resolution")
	loadCmd.Flags().BoolVar(&loadFlags.force, "force", false, "reload a module even if already loaded")
}

// runLoad calls env.LoadModuleByName per argument. Each argument's
// attempt is scoped by the recorder's push/pop plus an environment
// snapshot: on failure, any shell mutation queued since the argument's
// push and any loaded-set/dependency edge recorded by
// successfully-loaded dependencies within this same attempt are both
// discarded, so the persisted state never claims a module whose shell
// mutations were thrown away. The failure is logged rather than
// propagated.
func runLoad(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.close()

	for _, arg := range args {
		name := moduledb.ModuleName(loadFlags.prefix + arg)

		snap := sess.env.Snapshot()
		sess.shell.Push()
		if err := sess.env.LoadModuleByName(name, loadFlags.force); err != nil {
			sess.shell.Pop()
			sess.env.Restore(snap)
			sess.logger.Warn("%v", err)
			continue
		}
		sess.shell.Discard()
	}

	return sess.flush()
}
