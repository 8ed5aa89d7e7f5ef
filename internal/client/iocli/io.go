// Package iocli абстрагирует терминальный ввод/вывод клиента доски,
// чтобы команды CLI можно было тестировать без реального stdin/stdout.
package iocli

//go:generate moq -out io_mock.go . IO

// IO — терминал с точки зрения CLI-команд: вывод, чтение строк
// и скрытый ввод master password
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
