package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"golang.org/x/term"
)

var (
	errEmptyInput       = errors.New("a value is required")
	errPasswordMismatch = errors.New("passwords do not match")
)

// readPassword reads from the terminal without echo. Tests replace it.
var readPassword = term.ReadPassword

// ReadLine prints "label: " and returns the next line, trimmed. A final line
// without a newline is accepted.
func ReadLine(reader *bufio.Reader, w io.Writer, label string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadSecret prints "label: " and reads a non-empty secret from stdin without
// echo. The caller wipes the result.
func ReadSecret(w io.Writer, label string) ([]byte, error) {
	if _, err := fmt.Fprintf(w, "%s: ", label); err != nil {
		return nil, err
	}
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, errEmptyInput
	}
	return secret, nil
}

// confirmSecret reads a secret twice through read and returns it when both
// entries match.
func confirmSecret(read func(io.Writer, string) ([]byte, error), w io.Writer, label string) ([]byte, error) {
	first, err := read(w, label)
	if err != nil {
		return nil, err
	}
	again, err := read(w, "Repeat "+strings.ToLower(label))
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(first, again) {
		common.WipeByteArray(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}
