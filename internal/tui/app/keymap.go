package app

// Key binding constants used in handleKey.
const (
	KeyCtrlC     = "ctrl+c"
	KeyTrigger   = "tab"
	KeyActivate  = "ctrl+a"
	KeyEnter     = "enter"
	KeyBackspace = "backspace"
)
