// Package ui renders the CLI's colored terminal output.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgWhite)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	stepColor    = color.New(color.FgBlue, color.Bold)
)

// Header prints a boxed section title.
func Header(text string) {
	line := strings.Repeat("=", headerWidth)
	headerColor.Println(line)
	headerColor.Println(center(text, headerWidth))
	headerColor.Println(line)
}

// Step prints a numbered progress step.
func Step(current, total int, text string) {
	stepColor.Printf("[%d/%d] ", current, total)
	fmt.Println(text)
}

// Success prints a confirmation line.
func Success(text string) {
	successColor.Printf("✓ %s\n", text)
}

// Info prints a neutral status line.
func Info(text string) {
	infoColor.Println(text)
}

// Warning prints a non-fatal problem.
func Warning(text string) {
	warningColor.Printf("! %s\n", text)
}

// Error prints a failure line.
func Error(text string) {
	errorColor.Printf("✗ %s\n", text)
}

// BlueText returns text colored blue for inline use.
func BlueText(text string) string {
	return stepColor.Sprint(text)
}

// YellowText returns text colored yellow for inline use.
func YellowText(text string) string {
	return warningColor.Sprint(text)
}

// center left-pads text to sit in the middle of width. Text wider than
// width is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return strings.Repeat(" ", (width-len(text))/2) + text
}
