package finding

import (
	"fmt"
	"strings"
)

// Finding is one issue reported by the checker.
type Finding struct {
	File       string `json:"filename" col:"filename"`
	Line       int    `json:"line" col:"line"`
	CategoryID string `json:"id" col:"id"`
	Message    string `json:"message" col:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d [%s] %s", f.File, f.Line, f.CategoryID, f.Message)
}

// Group collects every finding reported at one file and line.
type Group struct {
	File        string
	Line        int
	CategoryIDs []string

	messages map[string][]string
}

func newGroup(file string, line int) *Group {
	return &Group{File: file, Line: line, messages: make(map[string][]string)}
}

func (g *Group) add(categoryID, message string) {
	if _, seen := g.messages[categoryID]; !seen {
		g.CategoryIDs = append(g.CategoryIDs, categoryID)
	}
	g.messages[categoryID] = append(g.messages[categoryID], message)
}

// Messages returns the group's messages, category by category in the order the
// categories were first seen. Within a category messages keep report order.
func (g *Group) Messages() []string {
	var out []string
	for _, id := range g.CategoryIDs {
		out = append(out, g.messages[id]...)
	}
	return out
}

// MessagesFor returns the messages reported under one category.
func (g *Group) MessagesFor(categoryID string) []string {
	return g.messages[categoryID]
}

// Signature is the concatenation of the group's category ids.
func (g *Group) Signature() string {
	return strings.Join(g.CategoryIDs, "")
}

// Text joins all messages with newlines.
func (g *Group) Text() string {
	return strings.Join(g.Messages(), "\n")
}
