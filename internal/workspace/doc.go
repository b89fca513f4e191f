// Package workspace provisions the private repository clone behind each session.
//
// A workspace is a full `git clone --local` of the project into the state
// directory:
//
//	p := workspace.NewGitProvisioner(system.DefaultExecutor(), system.DefaultFS())
//	err := p.Provision(ctx, "/home/me/src/widget", "/home/me/.realm/workspaces/alpha")
//	// git clone --local -- /home/me/src/widget /home/me/.realm/workspaces/alpha
//	// git -C /home/me/src/widget remote get-url origin
//	// git -C /home/me/.realm/workspaces/alpha remote set-url origin <url>
//
// Object files are hardlinked where possible, but the clone owns its refs,
// index and config. Branch deletion, history rewrites and resets inside the
// workspace never reach the project repository.
//
// Provision fails without leaving anything behind when the source is not a
// repository (ErrSourceNotARepo), the destination exists
// (ErrDestinationExists), or git fails (ErrCloneFailed). Teardown removes the
// tree and reports ErrNotFound or ErrDeleteFailed.
package workspace
