package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/DoyleJ11/gondi/internal/connector"
	"github.com/DoyleJ11/gondi/internal/engine"
)

const help = `commands:
  kill <player>               mafia, at night
  save <player>               doctor, at night
  investigate <player>        detective, at night
  accuse <player>             town hall
  second <player>             town hall, backs the accusation
  vote <player> guilty|innocent
  join                        take your seat again, e.g. after a reset
  leave
  state`

var errUsage = errors.New("usage")

// parseIntent turns one console line into an intent. PlayerID and Round are
// filled in by the connector.
func parseIntent(line string) (engine.Intent, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return engine.Intent{}, errUsage
	}

	verb := strings.ToLower(f[0])
	targeted := map[string]engine.IntentType{
		"kill":        engine.IntentKill,
		"save":        engine.IntentSave,
		"investigate": engine.IntentInvestigate,
		"accuse":      engine.IntentAccuse,
		"second":      engine.IntentSecond,
	}
	if t, ok := targeted[verb]; ok {
		if len(f) != 2 {
			return engine.Intent{}, fmt.Errorf("%w: %s <player>", errUsage, verb)
		}
		return engine.Intent{Type: t, TargetID: f[1]}, nil
	}

	switch verb {
	case "vote":
		if len(f) != 3 || (f[2] != "guilty" && f[2] != "innocent") {
			return engine.Intent{}, fmt.Errorf("%w: vote <player> guilty|innocent", errUsage)
		}
		return engine.Intent{Type: engine.IntentVote, TargetID: f[1], Guilty: f[2] == "guilty"}, nil
	case "leave":
		return engine.Intent{Type: engine.IntentLeave}, nil
	}
	return engine.Intent{}, fmt.Errorf("%w: unknown command %q", errUsage, f[0])
}

func console(ctx context.Context, conn *connector.Connector, in io.Reader, out io.Writer) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "help":
			fmt.Fprintln(out, help)
			continue
		case "state":
			fmt.Fprint(out, summary(conn.State(), ""))
			continue
		case "join":
			if err := conn.Rejoin(ctx); err != nil {
				fmt.Fprintln(out, "not sent:", err)
			}
			continue
		}

		intent, err := parseIntent(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if err := conn.Intent(ctx, intent); err != nil {
			fmt.Fprintln(out, "not sent:", err)
		}
	}
}

// follow prints what changed in the local state until ctx ends.
func follow(ctx context.Context, conn *connector.Connector, playerID string, out io.Writer) {
	var (
		status        connector.Status
		phase         engine.Phase
		round         int
		announcements int
		notices       int
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Changes():
		}

		st := conn.State()
		if st.Status != status {
			status = st.Status
			fmt.Fprintf(out, "[%s]", status)
			if st.LastError != "" && status != connector.StatusSuccess {
				fmt.Fprintf(out, " %s", st.LastError)
			}
			fmt.Fprintln(out)
		}
		for _, a := range tail(st.Announcements, st.Announced, &announcements) {
			fmt.Fprintln(out, "*", a)
		}
		for _, n := range tail(st.Notices, st.Noticed, &notices) {
			fmt.Fprintf(out, "! %s: %s\n", n.Kind, n.Message)
		}
		if st.HasGame && (st.Game.Phase != phase || st.Game.Round != round) {
			phase, round = st.Game.Phase, st.Game.Round
			fmt.Fprint(out, summary(st, playerID))
		}
	}
}

// tail returns the entries of a bounded log that arrived since the last
// call. total counts every entry ever appended; seen is the caller's cursor.
func tail[T any](log []T, total int, seen *int) []T {
	if total < *seen {
		*seen = 0
	}
	fresh := total - *seen
	*seen = total
	switch {
	case fresh <= 0:
		return nil
	case fresh > len(log):
		return log
	}
	return log[len(log)-fresh:]
}

func summary(st connector.LocalState, playerID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s round %d", st.Game.Phase, st.Game.Round)
	if st.Game.AccusedPlayerID != "" {
		fmt.Fprintf(&b, "  accused %s", st.Game.AccusedPlayerID)
	}
	if st.Game.Winner != "" {
		fmt.Fprintf(&b, "  winner %s", st.Game.Winner)
	}
	b.WriteByte('\n')
	for _, p := range st.Players {
		marker := " "
		if p.ID == playerID {
			marker = ">"
		}
		alive := "alive"
		if !p.Alive {
			alive = "dead"
		}
		role := string(p.Role)
		if role == "" {
			role = "?"
		}
		fmt.Fprintf(&b, "%s %-12s %-10s %-5s %s\n", marker, p.ID, role, alive, p.Name)
	}
	return b.String()
}
