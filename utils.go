package main

import (
	"fmt"
	"html"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

func readClipboardText() (string, error) {
	if runtime.GOOS == "darwin" {
		if output, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(output), nil
		}
	}
	return clipboard.ReadAll()
}

func writeClipboardText(text string) error {
	return clipboard.WriteAll(text)
}

// openInViewer hands a file to the platform's default application.
func openInViewer(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("could not open viewer: %w", err)
	}
	go cmd.Wait()
	return nil
}

func isRTF(text string) bool {
	return strings.HasPrefix(text, "{\\rtf")
}

func isHTML(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(t, "<") &&
		(strings.Contains(t, "<html") || strings.Contains(t, "<body") || strings.Contains(t, "<div") || strings.Contains(t, "<p"))
}

// cleanClipboardText turns pasted RTF or HTML into plain text, normalises line
// endings and drops control characters other than tab and newline.
func cleanClipboardText(text string) string {
	switch {
	case text == "":
		return text
	case isRTF(text):
		text = stripRTF(text)
	case isHTML(text):
		text = stripHTML(text)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r >= 32 {
			return r
		}
		return -1
	}, text)
}

// rtfDestinations are groups whose content is not document text.
var rtfDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true, "*": true,
}

// stripRTF keeps the document text of an RTF string. Control words and
// destination groups are skipped, \par becomes a newline and escaped braces
// and backslashes are kept.
func stripRTF(text string) string {
	var out strings.Builder
	runes := []rune(text)
	skip := false
	var groups []bool
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '{':
			groups = append(groups, skip)
			continue
		case '}':
			if len(groups) > 0 {
				skip = groups[len(groups)-1]
				groups = groups[:len(groups)-1]
			}
			continue
		case '\\':
		default:
			if !skip && r != '\n' && r != '\r' {
				out.WriteRune(r)
			}
			continue
		}
		if i+1 >= len(runes) {
			break
		}
		next := runes[i+1]
		if next == '\\' || next == '{' || next == '}' {
			if !skip {
				out.WriteRune(next)
			}
			i++
			continue
		}
		if next == '*' {
			skip = true
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && (runes[j] >= 'a' && runes[j] <= 'z' || runes[j] >= 'A' && runes[j] <= 'Z') {
			j++
		}
		word := string(runes[i+1 : j])
		for j < len(runes) && (runes[j] == '-' || runes[j] >= '0' && runes[j] <= '9') {
			j++
		}
		switch {
		case rtfDestinations[word]:
			skip = true
		case !skip && (word == "par" || word == "line"):
			out.WriteRune('\n')
		case !skip && word == "tab":
			out.WriteRune('\t')
		}
		if j < len(runes) && runes[j] == ' ' {
			j++
		}
		i = j - 1
	}
	return strings.Trim(out.String(), "\n")
}

// stripHTML drops tags, turns block boundaries into newlines and decodes entities.
func stripHTML(text string) string {
	var out strings.Builder
	inTag := false
	var tag strings.Builder
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>' && inTag:
			inTag = false
			fields := strings.Fields(tag.String())
			if len(fields) == 0 {
				continue
			}
			switch strings.ToLower(strings.Trim(fields[0], "/")) {
			case "br", "p", "div", "li":
				out.WriteRune('\n')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			out.WriteRune(r)
		}
	}
	return strings.Trim(html.UnescapeString(out.String()), "\n")
}
