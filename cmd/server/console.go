package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/DoyleJ11/gondi/internal/engine"
	"github.com/DoyleJ11/gondi/internal/server"
)

const help = `commands:
  assign <player> <role>     MAFIA, ACCOMPLICE, DOCTOR, DETECTIVE, CITIZEN
  start                      leave the lobby, first night
  advance <phase>            SLEEP, TOWN_HALL, COURT, GAME_OVER
  reveal <player>...         announce the night's deaths
  remove <player>            eliminate a player
  court                      tally the votes on the accused
  winner <faction>           MAFIA or CITIZEN
  reset                      wipe the session
  new [session-id]           create a fresh game
  state                      print the table`

var errUsage = errors.New("usage")

// parseCommand turns one console line into a moderator command.
func parseCommand(line string) (engine.Command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return engine.Command{}, errUsage
	}
	args := f[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s needs %d argument(s)", errUsage, f[0], n)
		}
		return nil
	}

	switch strings.ToLower(f[0]) {
	case "assign":
		if err := need(2); err != nil {
			return engine.Command{}, err
		}
		return engine.Command{Type: engine.CmdAssignRole, PlayerID: args[0], Role: engine.Role(strings.ToUpper(args[1]))}, nil
	case "start":
		return engine.Command{Type: engine.CmdStartGame}, nil
	case "advance":
		if err := need(1); err != nil {
			return engine.Command{}, err
		}
		return engine.Command{Type: engine.CmdAdvancePhase, Phase: engine.Phase(strings.ToUpper(args[0]))}, nil
	case "reveal":
		if err := need(1); err != nil {
			return engine.Command{}, err
		}
		return engine.Command{Type: engine.CmdRevealDeaths, PlayerIDs: args}, nil
	case "remove":
		if err := need(1); err != nil {
			return engine.Command{}, err
		}
		return engine.Command{Type: engine.CmdRemovePlayer, PlayerID: args[0]}, nil
	case "court":
		return engine.Command{Type: engine.CmdResolveCourt}, nil
	case "winner":
		if err := need(1); err != nil {
			return engine.Command{}, err
		}
		return engine.Command{Type: engine.CmdDeclareWinner, Faction: engine.Faction(strings.ToUpper(args[0]))}, nil
	case "reset":
		return engine.Command{Type: engine.CmdResetGame}, nil
	case "new":
		cmd := engine.Command{Type: engine.CmdCreateGame}
		if len(args) > 0 {
			cmd.SessionID = args[0]
		}
		return cmd, nil
	}
	return engine.Command{}, fmt.Errorf("%w: unknown command %q", errUsage, f[0])
}

func console(ctx context.Context, srv *server.Server, db engine.Store, in io.Reader, out io.Writer) {
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
			printTable(ctx, srv, db, out)
			continue
		}

		cmd, err := parseCommand(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if err := srv.HandleModeratorCommand(ctx, cmd); err != nil {
			fmt.Fprintln(out, "rejected:", err)
			continue
		}
		fmt.Fprintln(out, "ok")
	}
}

func printTable(ctx context.Context, srv *server.Server, db engine.Store, out io.Writer) {
	sess, _ := srv.Session()
	st, err := db.State(ctx, sess.ID)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	players, _ := db.Players(ctx, sess.ID)
	votes, _ := db.Votes(ctx, sess.ID)

	fmt.Fprintf(out, "%s round %d", st.Phase, st.Round)
	if st.AccusedPlayerID != "" {
		fmt.Fprintf(out, "  accused %s", st.AccusedPlayerID)
	}
	if len(st.PendingKills) > 0 {
		fmt.Fprintf(out, "  pending %v", st.PendingKills)
	}
	if st.Winner != "" {
		fmt.Fprintf(out, "  winner %s", st.Winner)
	}
	fmt.Fprintln(out)
	for _, p := range players {
		alive := "alive"
		if !p.Alive {
			alive = "dead"
		}
		fmt.Fprintf(out, "  %-12s %-10s %-5s %s\n", p.ID, p.Role, alive, p.Name)
	}
	if len(votes) > 0 {
		v := engine.Tally(votes, st.AccusedPlayerID, st.Round)
		fmt.Fprintf(out, "  votes: %d guilty, %d innocent\n", v.Guilty, v.Innocent)
	}
}
