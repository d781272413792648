package logger

import (
	"fmt"
	"time"
)

// ANSI color codes for console output.
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func stamp() string {
	return time.Now().Format("15:04:05")
}

func line(color, level, tag, msg string) {
	fmt.Printf("%s%s%s %s%-5s%s %s[%s]%s %s\n",
		colorGray, stamp(), colorReset,
		color, level, colorReset,
		colorCyan, tag, colorReset, msg)
}

// Info logs an informational message with a component tag.
func Info(tag, msg string) {
	line(colorReset, "INFO", tag, msg)
}

// Success logs a success message.
func Success(tag, msg string) {
	line(colorGreen, "OK", tag, msg)
}

// Warn logs a warning.
func Warn(tag, msg string) {
	line(colorYellow, "WARN", tag, msg)
}

// Error logs an error.
func Error(tag, msg string) {
	line(colorRed, "ERROR", tag, msg)
}

// Banner prints the startup banner with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Printf("%s%s  eve-importer %s%s\n", colorBold, colorCyan, version, colorReset)
	fmt.Printf("%s  cross-market import scanner / ore compression%s\n\n", colorGray, colorReset)
}

// Section prints a section divider for CLI output.
func Section(name string) {
	fmt.Printf("\n%s── %s %s\n", colorBold, name, colorReset)
}

// Stats prints a key/value stat line.
func Stats(key string, value interface{}) {
	fmt.Printf("  %s%s:%s %v\n", colorGray, key, colorReset, value)
}
