package cmd

import (
	"github.com/spf13/cobra"

	"pyenv/moduledb"
)

var unloadFlags = struct {
	prefix string
}{}

var unloadCmd = &cobra.Command{
	Use:   "unload <module>...",
	Short: "Unload one or more modules from the environment",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUnload,
}

func init() {
	unloadCmd.Flags().StringVar(&unloadFlags.prefix, "prefix", "", "string prepended to each module argument before resolution")
}

// runUnload is the batch-unload "rounds" algorithm: each
// round unloads every requested name that is currently OkayToUnload
// (loaded, no live dependants); names left blocked carry over to the
// next round. A round that unblocks nothing triggers one final pass
// that attempts every remaining name unconditionally, logging one
// error per name still blocked, and then stops, guaranteeing
// termination.
func runUnload(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.close()

	pending := make([]moduledb.ModuleName, 0, len(args))
	for _, arg := range args {
		pending = append(pending, moduledb.ModuleName(unloadFlags.prefix+arg))
	}

	for len(pending) > 0 {
		var ready, blocked []moduledb.ModuleName
		for _, name := range pending {
			if sess.env.OkayToUnload(name) {
				ready = append(ready, name)
			} else {
				blocked = append(blocked, name)
			}
		}

		if len(ready) == 0 {
			for _, name := range pending {
				if err := sess.env.UnloadModuleByName(name); err != nil {
					sess.logger.Warn("%v", err)
				}
			}
			break
		}

		for _, name := range ready {
			if err := sess.env.UnloadModuleByName(name); err != nil {
				sess.logger.Warn("%v", err)
			}
		}
		pending = blocked
	}

	return sess.flush()
}
