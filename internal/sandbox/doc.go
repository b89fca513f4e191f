// Package sandbox provides session lifecycle management for realm.
//
// The Orchestrator reconciles the session registry with the live state of
// the container runtime and drives the workspace provisioner, the SSH
// forwarder and the runtime to create, resume, stop and remove sessions.
//
//	orch := sandbox.New(sandbox.Deps{
//	    Paths:       paths,
//	    Settings:    settings,
//	    Registry:    reg,
//	    Runtime:     rt,
//	    Provisioner: workspace.NewGitProvisioner(exec, fs),
//	})
//
//	res, err := orch.CreateOrResume(ctx, "alpha", sandbox.Options{Detach: true})
//
// # Creation Flow
//
// CreateOrResume on an unknown name:
//  1. Reserves the name with a create-only registry write
//  2. Finds the repository root of the project directory
//  3. Clones it into the session workspace
//  4. Resolves SSH agent forwarding
//  5. Creates the container and records its reference
//  6. Starts it, then attaches unless detached
//
// On failure before step 5 completes, the container, workspace and
// reservation are removed.
//
// # Resume
//
// An existing session keeps its image, mount path, project and environment.
// Runtime arguments and the SSH toggle are refreshed on every resume. A
// stopped container is started; a running one is attached to, or the given
// command is run in it. A session whose container disappeared is dangling:
// it fails, or is rebuilt on the same workspace when the dangling policy is
// "recreate" or Options.Recreate is set.
//
// # Removal
//
// Remove deletes the record last, so an interrupted remove can be retried
// until it converges.
package sandbox
