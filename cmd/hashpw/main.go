// hashpw prints a password hash in the format stored in users.password_hash,
// using the cost parameters from the application config.
//
// The password is read from the first line of stdin so it does not end up
// in shell history:
//
//	printf '%s\n' 's3cret' | CONFIG_PATH=config/local.yaml go run ./cmd/hashpw
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/password"
)

func main() {
	cfg := config.MustLoad()

	hash, err := run(os.Stdin, cfg.Password.Scrypt())
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(hash)
}

func run(in io.Reader, cfg password.Config) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}

	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("empty password")
	}

	hasher, err := password.New(cfg)
	if err != nil {
		return "", err
	}
	return hasher.Hash(pw)
}
