package iocli

//go:generate moq -out io_mock.go . IO

// IO абстрагирует терминальный ввод-вывод консоли, чтобы команды можно
// было тестировать без реального терминала
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	// ReadInput печатает prompt и читает строку, обрезая пробелы по краям
	ReadInput(prompt string) (string, error)
	// ReadPassword печатает prompt и читает строку без эха
	ReadPassword(prompt string) (string, error)
	// Confirm печатает prompt и трактует y/yes (без регистра) как согласие
	Confirm(prompt string) (bool, error)
	Write(p []byte) (n int, err error)
}
