// Package helperd wraps an application's Setup/Process/Cleanup hooks in a
// complete daemon runtime: YAML configuration with live reload, structured
// logging driven by the Logging section, a signal-controlled lifecycle, and
// optional backgrounding with pid file and instance lock handling.
//
// A minimal application provides a lifecycle.Runner and calls Run:
//
//	func main() {
//		os.Exit(helperd.Run(&app{}, helperd.Options{
//			Name:    "example",
//			Version: "1.0.0",
//		}))
//	}
//
// The resulting binary understands -c/--config, -f/--foreground, --version,
// and an init-config subcommand, and reacts to SIGTERM (stop), SIGHUP
// (restart in place), SIGUSR1 (reload configuration), and SIGUSR2
// (application hook).
package helperd
