package main

// Exit codes
const (
	ExitSuccess           = 0 // Success
	ExitError             = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError       = 2 // Configuration error (unreadable config, bad local catalogue)
	ExitDataError         = 3 // Data error (no references found, malformed input)
	ExitParserUnavailable = 4 // Reference parser executable not found
	ExitUnverified        = 5 // --strict and at least one reference was not verified
)
