package main

import (
	"fmt"
	"os"
)

type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
	Fatal(format string, v ...any)
}

// logger writes leveled output; per-request outcomes and phase banners go to
// stdout directly, this is only for the generator's own chatter.
type logger struct {
	level int
}

func NewLogger(level int) Logger {
	return &logger{level: level}
}

func (l *logger) Debug(format string, v ...any) {
	if l.level >= 3 {
		fmt.Printf(format, v...)
	}
}

func (l *logger) Info(format string, v ...any) {
	if l.level >= 2 {
		fmt.Printf(format, v...)
	}
}

func (l *logger) Warn(format string, v ...any) {
	if l.level >= 1 {
		fmt.Fprintf(os.Stderr, format, v...)
	}
}

func (l *logger) Error(format string, v ...any) {
	fmt.Fprintf(os.Stderr, format, v...)
}

func (l *logger) Fatal(format string, v ...any) {
	fmt.Fprintf(os.Stderr, format, v...)
	os.Exit(1)
}
