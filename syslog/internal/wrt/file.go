package wrt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const idFile = "log.id"

// NewFile opens the next log file in dir. A one character id (a..z) kept in
// dir/log.id is advanced on every call, so the last 26 runs are retained as
// <dir>/<name>.<id>.log.
func NewFile(dir string, name string) (*os.File, string, error) {

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", err
	}
	idf, err := os.OpenFile(filepath.Join(dir, idFile), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, "", err
	}
	defer idf.Close()
	//
	// read log id into postfix and update and save back to file
	//
	postfix := make([]byte, 1)
	n, err := idf.Read(postfix)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("error in reading %s: %w", idFile, err)
	}
	switch {
	case n == 0, postfix[0] < 'a', postfix[0] >= 'z':
		postfix[0] = 'a'
	default:
		postfix[0]++
	}
	// reset file to beginning and save postfix
	if _, err = idf.Seek(0, 0); err != nil {
		return nil, "", err
	}
	if _, err = idf.Write(postfix); err != nil {
		return nil, "", fmt.Errorf("error in writing to %s: %w", idFile, err)
	}

	var s strings.Builder
	s.WriteString(name)
	s.WriteByte('.')
	s.WriteByte(postfix[0])
	s.WriteString(".log")
	path := filepath.Join(dir, s.String())

	logf, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, "", err
	}
	return logf, path, nil
}
