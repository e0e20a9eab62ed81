package config

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// LoadEnv загружает переменные окружения из .env файла.
// Строки имеют формат KEY=VALUE или export KEY=VALUE; пустые строки и
// комментарии (#) пропускаются, кавычки вокруг значения снимаются.
// Переменные, уже заданные в окружении процесса, не перезаписываются,
// чтобы ${VAR} в конфиге можно было переопределить при запуске.
func LoadEnv(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read env file")
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, unquote(strings.TrimSpace(value))); err != nil {
			return errors.Wrapf(err, "set %s", key)
		}
	}
	return sc.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// LoadEnvOptional загружает .env файл, если он существует.
func LoadEnvOptional(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return LoadEnv(path)
}
