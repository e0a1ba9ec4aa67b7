package dbx

// Prompter abstracts interactive terminal input so the service layer can ask
// for passphrases without binding to a real terminal. The terminal
// implementation lives in internal/app.
type Prompter interface {
	// ReadLine prints the prompt and reads one line of input.
	ReadLine(prompt string) (string, error)

	// ReadPassword prints the prompt and reads input without echo.
	ReadPassword(prompt string) (string, error)
}
