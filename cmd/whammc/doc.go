package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ejrgilbert/whammc/internal/registry"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newDocCmd(stdOut, stdErr *os.File) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "doc [provider[:package[:event[:mode]]]]",
		Short: "Show registry documentation for a probe path, or browse it interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.New()
			if len(args) == 0 {
				if asJSON {
					return writeDocJSON(stdOut, reg, nil)
				}
				if isTerminal(stdOut) {
					return runDocBrowser(stdOut, reg)
				}
				printDocTree(stdOut, reg.Root, "")
				return nil
			}
			path := strings.Split(args[0], ":")
			n := reg.Lookup(path...)
			if n == nil {
				return fmt.Errorf("no such registry path: %s", args[0])
			}
			if asJSON {
				return writeDocJSON(stdOut, reg, n)
			}
			printDocNode(stdOut, n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit documentation as JSON instead of text")
	return cmd
}

// docEntry is the JSON shape for one registry node, used by `whammc doc
// --json` for tooling that wants structured output instead of prose.
type docEntry struct {
	Name     string     `json:"name"`
	Docs     string     `json:"docs"`
	Globals  []string   `json:"globals,omitempty"`
	Children []docEntry `json:"children,omitempty"`
}

func toDocEntry(n *registry.Node) docEntry {
	e := docEntry{Name: n.Name, Docs: n.Docs, Globals: n.Globals}
	for _, name := range n.ChildNames() {
		e.Children = append(e.Children, toDocEntry(n.Children[name]))
	}
	return e
}

func writeDocJSON(w io.Writer, reg *registry.Registry, n *registry.Node) error {
	if n == nil {
		n = reg.Root
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toDocEntry(n))
}

func printDocNode(w io.Writer, n *registry.Node) {
	fmt.Fprintf(w, "%s\n", n.Docs)
	if len(n.Globals) > 0 {
		fmt.Fprintf(w, "  globals: %s\n", strings.Join(n.Globals, ", "))
	}
	for _, name := range n.ChildNames() {
		fmt.Fprintf(w, "  - %s\n", name)
	}
}

func printDocTree(w io.Writer, n *registry.Node, indent string) {
	for _, name := range n.ChildNames() {
		c := n.Children[name]
		fmt.Fprintf(w, "%s%s: %s\n", indent, displayName(name), c.Docs)
		printDocTree(w, c, indent+"  ")
	}
}

func displayName(name string) string {
	if name == "" {
		return "(empty)"
	}
	return name
}

// runDocBrowser is an interactive registry walker: type a child name to
// descend, `..` to go up, `ls` to list the current node's children, `q`
// to quit. Used when `whammc doc` is invoked with no path and stdout is a
// terminal.
func runDocBrowser(stdOut *os.File, reg *registry.Registry) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	stack := []*registry.Node{reg.Root}
	path := []string{""}

	for {
		cur := stack[len(stack)-1]
		line.SetCompleter(func(prefix string) (c []string) {
			for _, name := range cur.ChildNames() {
				if strings.HasPrefix(name, prefix) {
					c = append(c, name)
				}
			}
			return
		})

		prompt := strings.Join(path, ":") + "> "
		input, err := line.Prompt(prompt)
		if err == io.EOF || err == liner.ErrPromptAborted {
			fmt.Fprintln(stdOut, "")
			return nil
		}
		if err != nil {
			return err
		}
		line.AppendHistory(input)
		input = strings.TrimSpace(input)

		switch {
		case input == "" || input == "ls":
			printDocNode(stdOut, cur)
		case input == "q" || input == "quit":
			return nil
		case input == "..":
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
			}
		default:
			child, ok := cur.Children[input]
			if !ok {
				fmt.Fprintf(stdOut, "no such child: %s\n", input)
				continue
			}
			stack = append(stack, child)
			path = append(path, displayName(input))
			printDocNode(stdOut, child)
		}
	}
}
