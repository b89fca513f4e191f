// Package app provides the application context for realm.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Settings    *config.Settings      // Layered user settings
//	    Paths       *config.Paths         // State layout
//	    Runtime     runtime.Runtime       // Container runtime
//	    Registry    registry.Registry     // Session records
//	    Provisioner workspace.Provisioner // Workspace clones
//	    Events      *audit.Logger         // Session event history
//	}
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	app, err := app.New()
//
//	// Testing with custom dependencies
//	app, err := app.New(
//	    app.WithSettings(settings),
//	    app.WithPaths(testPaths),
//	    app.WithRuntime(mockRuntime),
//	)
//
// # Available Options
//
//	WithSettings(settings)        // Skip loading the settings file
//	WithPaths(paths)              // Custom state layout
//	WithExecutor(exec)            // Custom command executor
//	WithRuntime(runtime)          // Custom container runtime
//	WithRegistry(registry)        // Custom session registry
//	WithProvisioner(provisioner)  // Custom workspace provisioner
//	WithForwarder(forwarder)      // Custom SSH agent forwarding
package app
