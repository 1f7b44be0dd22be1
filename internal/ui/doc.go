// Package ui renders KeyClave CLI output.
//
// Each Style names what the text is rather than how it looks. With colour
// the text is painted; under NO_COLOR, or on a terminal without colour
// support, a plain decoration keeps the meaning visible:
//
//	ui.Code.Sprint("keyclave vault init")  // `keyclave vault init`
//	ui.Name.Sprint("GITHUB_TOKEN")         // 'GITHUB_TOKEN'
//	ui.Provider.Sprint("github")           // [github]
//	ui.Muted.Sprint("dotenv")              // (dotenv)
//	ui.Path.Sprint(".env")                 // .env
//	ui.Success.Sprint("✓")                 // ✓
//
// # Secret Values
//
// Values never reach the terminal through a Style in the clear. Secret runs
// Mask in both modes, keeping a recognizable token prefix and the last four
// characters. Confidence renders an import finding's score as a percentage
// coloured by ConfidenceStyle.
package ui
