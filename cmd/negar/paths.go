package main

import "github.com/negar-bot/negar/internal/paths"

// ///////////////////////////////////////////////
// Path Aliases
// ///////////////////////////////////////////////

// DataPaths aliases [paths.DataDir] into the main package so daemon code can
// reference path helpers without qualifying the internal package name. This
// file has no build constraints because path construction is platform
// independent; [filepath.Join] inside [paths.DataDir] handles OS-specific
// separators.
type DataPaths = paths.DataDir
