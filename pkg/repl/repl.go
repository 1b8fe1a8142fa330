// Package repl implements the interactive rule shell: type rules to build
// a candidate set, inspect the compiled tables, commit or roll back.
package repl

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/camuslang/camus/pkg/p4"
	"github.com/camuslang/camus/pkg/store"
)

// REPL is the interactive shell.
type REPL struct {
	rl    *readline.Instance
	store *store.Store
	out   io.Writer
}

// New creates a new REPL over the given store.
func New(st *store.Store) *REPL {
	return &REPL{store: st, out: os.Stdout}
}

var errExit = fmt.Errorf("exit")

// Run starts the interactive loop.
func (r *REPL) Run() error {
	var err error
	r.rl, err = readline.NewEx(&readline.Config{
		Prompt:          r.prompt(),
		HistoryFile:     "/tmp/camus_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer r.rl.Close()

	fmt.Fprintln(r.out, "camus rule shell - enter rules, 'show' to inspect, '?' for help")
	fmt.Fprintln(r.out)

	for {
		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := r.dispatch(line); err != nil {
			if err == errExit {
				return nil
			}
			color.New(color.FgRed).Fprintf(r.rl.Stderr(), "error: %v\n", err)
		}
		r.rl.SetPrompt(r.prompt())
	}
	return nil
}

func (r *REPL) prompt() string {
	if r.store.Dirty() {
		return "camus* > "
	}
	return "camus > "
}

func completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("show",
			readline.PcItem("commands"),
			readline.PcItem("pipeline"),
			readline.PcItem("rules"),
			readline.PcItem("history"),
		),
		readline.PcItem("commit"),
		readline.PcItem("rollback"),
		readline.PcItem("load"),
		readline.PcItem("clear"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
		readline.PcItem("exit"),
	)
}

func (r *REPL) dispatch(line string) error {
	parts := strings.Fields(line)

	switch parts[0] {
	case "show":
		return r.handleShow(parts[1:])
	case "commit":
		return r.handleCommit()
	case "rollback":
		return r.handleRollback(parts[1:])
	case "load":
		if len(parts) != 2 {
			return fmt.Errorf("usage: load <file>")
		}
		return r.handleLoad(parts[1])
	case "clear":
		r.store.Clear()
		fmt.Fprintln(r.out, "candidate cleared")
		return nil
	case "help", "?":
		r.printHelp()
		return nil
	case "quit", "exit":
		return errExit
	default:
		// Anything else is rule text.
		return r.handleRule(line)
	}
}

func (r *REPL) handleRule(line string) error {
	if !strings.HasSuffix(line, ";") {
		line += " ;"
	}
	if err := r.store.AppendRule(line); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "rule added to candidate")
	return nil
}

func (r *REPL) handleShow(args []string) error {
	what := "tables"
	if len(args) > 0 {
		what = args[0]
	}

	switch what {
	case "rules":
		fmt.Fprint(r.out, r.store.Candidate())
		return nil
	case "history":
		for _, line := range r.store.History() {
			fmt.Fprintln(r.out, line)
		}
		return nil
	case "pipeline":
		p, err := r.store.Pipeline()
		if err != nil {
			return err
		}
		fmt.Fprint(r.out, p.String())
		return nil
	case "commands":
		prog, err := r.store.CompileCandidate()
		if err != nil {
			return err
		}
		if err := p4.WriteCommands(r.out, prog); err != nil {
			return err
		}
		return p4.WriteMulticast(r.out, prog)
	case "tables":
		prog, err := r.store.CompileCandidate()
		if err != nil {
			return err
		}
		r.printTables(prog)
		return nil
	default:
		return fmt.Errorf("unknown show target %q", what)
	}
}

// printTables renders the lowered program as one table per physical
// match table.
func (r *REPL) printTables(prog *p4.Program) {
	for i := range prog.Tables {
		t := &prog.Tables[i]
		fmt.Fprintf(r.out, "%s (%d entries)\n", t.Name, len(t.Entries))

		tw := tablewriter.NewWriter(r.out)
		header := make([]string, 0, len(t.Fields)+3)
		for _, f := range t.Fields {
			header = append(header, f.Name+":"+f.Type.String())
		}
		header = append(header, "action", "params")
		if t.HasTernary {
			header = append(header, "priority")
		}
		tw.SetHeader(header)

		for _, e := range t.Entries {
			row := make([]string, 0, len(header))
			for _, m := range e.Match {
				row = append(row, m.FormatHuman())
			}
			params := make([]string, len(e.Params))
			for j, p := range e.Params {
				params[j] = p.Value
			}
			row = append(row, e.Action, strings.Join(params, " "))
			if t.HasTernary {
				row = append(row, strconv.Itoa(e.Priority))
			}
			tw.Append(row)
		}
		tw.Render()
		fmt.Fprintln(r.out)
	}

	if len(prog.Groups) > 0 {
		fmt.Fprintln(r.out, "multicast groups")
		tw := tablewriter.NewWriter(r.out)
		tw.SetHeader([]string{"mgid", "ports"})
		for _, g := range prog.Groups {
			ports := make([]string, len(g.Ports))
			for j, p := range g.Ports {
				ports[j] = strconv.Itoa(p)
			}
			tw.Append([]string{strconv.Itoa(g.ID), strings.Join(ports, " ")})
		}
		tw.Render()
	}
}

func (r *REPL) handleCommit() error {
	prog, err := r.store.Commit("repl commit")
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "committed: %d table entries, %d multicast groups\n",
		prog.EntryCount(), len(prog.Groups))
	return nil
}

func (r *REPL) handleRollback(args []string) error {
	n := 0
	if len(args) > 0 {
		var err error
		n, err = strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("usage: rollback [n]")
		}
	}
	if err := r.store.Rollback(n); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "candidate rolled back to commit -%d\n", n)
	return nil
}

func (r *REPL) handleLoad(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text := string(data)
	if _, err := r.store.CompileText(text); err != nil {
		return err
	}
	r.store.SetCandidate(text)
	fmt.Fprintf(r.out, "loaded %s into candidate\n", path)
	return nil
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.out, `Commands:
  <rule>            add a rule to the candidate, e.g. tcp.dport = 22 : fwd(1)
  show              show the compiled tables
  show commands     show runtime table_add commands
  show pipeline     show the abstract pipeline
  show rules        show the candidate rule text
  show history      show committed rule sets available for rollback
  commit            compile the candidate and make it active
  rollback [n]      restore the nth previous committed rule set
  load <file>       replace the candidate with a rule file
  clear             empty the candidate
  quit              leave the shell
`)
}
