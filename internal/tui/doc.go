// Package tui provides the interactive session browser.
//
// The browser lists sessions grouped by project and returns the user's
// choice; it never acts on a session itself:
//
//	result, err := tui.RunPicker(tui.EntriesFromViews(views), tui.Options{
//	    DefaultImage: settings.DefaultImage,
//	    ProjectDir:   cwd,
//	})
//	switch result.Action {
//	case tui.ActionResume:
//	    // CreateOrResume(result.Name)
//	case tui.ActionNew:
//	    // CreateOrResume(result.Name) with result.Image
//	case tui.ActionStop, tui.ActionRemove, tui.ActionPath:
//	    // act on result.Name
//	}
//
// Keys: enter (resume), n (new), s (stop), d (delete, asks y/N), p (print
// the workspace path), / (filter), q or esc (quit).
package tui
