package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/wfunc/ludoclient/broadcast"
	"github.com/wfunc/ludoclient/client"
	"github.com/wfunc/ludoclient/config"
	"github.com/wfunc/ludoclient/logger"
	"github.com/wfunc/ludoclient/models"
	"github.com/wfunc/ludoclient/session"
	"github.com/wfunc/ludoclient/state"
)

const usage = `commands:
  create [maxPlayers]      create a game
  join <gameId> [password] join a game
  roll                     roll the dice
  move <tokenId> <steps>   move a token
  skip                     skip your turn
  leave                    leave the game
  spectate <gameId>        watch a game
  unspectate               stop watching
  state                    show the current game
  history                  list finished games
  quit`

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	config.Watch(".", func(next *config.Config) {
		if err := logger.SetLevel(next.Log.Level); err != nil {
			logger.Log.Warnf("Ignoring log level %q: %v", next.Log.Level, err)
			return
		}
		logger.Log.Infof("Log level set to %s", next.Log.Level)
	}, func(err error) {
		logger.Log.Debugf("Config watch: %v", err)
	})

	c, err := client.New(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize client: %v", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.Connect(ctx); err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	if err := c.StartServices(); err != nil {
		logger.Log.Fatalf("Failed to start services: %v", err)
	}

	updates, cancel := c.Subscribe(64)
	defer cancel()
	go render(c, updates)

	fmt.Println(usage)

	// Read loop
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Interrupt received, closing connection.")
			return
		case <-c.Done():
			logger.Log.Info("Connection closed.")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := run(ctx, c, strings.Fields(line)); quit {
				return
			}
		}
	}
}

func run(ctx context.Context, c *client.Client, args []string) bool {
	if len(args) == 0 {
		return false
	}
	ctrl := c.Controller()

	var err error
	switch args[0] {
	case "create":
		settings := models.GameSettings{MaxPlayers: 4, TurnTimeout: 30, AllowSpectators: true, Mode: models.ModeClassic}
		if len(args) > 1 {
			if settings.MaxPlayers, err = strconv.Atoi(args[1]); err != nil {
				break
			}
		}
		var id string
		if id, err = ctrl.CreateSession(ctx, settings); err == nil {
			fmt.Printf("created game %s\n", id)
		}
	case "join":
		if len(args) < 2 {
			err = session.ErrMissingGameID
			break
		}
		password := ""
		if len(args) > 2 {
			password = args[2]
		}
		err = ctrl.JoinSession(ctx, args[1], password)
	case "roll":
		err = ctrl.RequestRoll(ctx)
	case "move":
		if len(args) < 3 {
			err = fmt.Errorf("usage: move <tokenId> <steps>")
			break
		}
		var steps int
		if steps, err = strconv.Atoi(args[2]); err == nil {
			err = ctrl.RequestMove(ctx, args[1], steps)
		}
	case "skip":
		err = ctrl.RequestSkipTurn(ctx)
	case "leave":
		err = ctrl.LeaveSession(ctx)
	case "spectate":
		if len(args) < 2 {
			err = session.ErrMissingGameID
			break
		}
		err = ctrl.Spectate(ctx, args[1])
	case "unspectate":
		err = ctrl.StopSpectating()
	case "state":
		printState(c.Snapshot(), c.IsMyTurn())
		if ctrl.IsGameFinished() {
			fmt.Println("game over")
		}
	case "history":
		for _, g := range c.Snapshot().History {
			fmt.Printf("  %s  %-9s winner=%s\n", g.ID, g.Status, g.Winner)
		}
	case "quit", "exit":
		return true
	default:
		fmt.Println(usage)
	}

	// 被拒绝的请求已经以通知形式显示
	if err != nil && !session.IsRejection(err) {
		fmt.Printf("error: %v\n", err)
	}
	return false
}

func render(c *client.Client, updates <-chan broadcast.Update) {
	for u := range updates {
		if u.Notice != nil {
			fmt.Printf("[%s] %s\n", u.Notice.Level, u.Notice.Message)
			continue
		}
		ctrl := c.Controller()
		g := u.State.CurrentGame
		switch {
		case g == nil || ctrl == nil || !c.IsMyTurn():
		case g.Dice.CanRoll:
			fmt.Println("your turn: roll")
		case ctrl.MustSkip():
			fmt.Printf("no move for %d: skip\n", g.Dice.Value)
		case !g.Dice.IsRolling && g.Dice.Value > 0:
			fmt.Printf("rolled %d, movable: %s\n", g.Dice.Value, strings.Join(ctrl.MovableTokens(), ", "))
		}
	}
}

func printState(s *state.SessionState, myTurn bool) {
	g := s.CurrentGame
	if g == nil {
		fmt.Println("not in a game")
	} else {
		fmt.Printf("game %s (%s) status=%s turn=%d mine=%v dice=%d\n",
			g.ID, g.RoomCode, g.Status, g.CurrentPlayer, myTurn, g.Dice.Value)
		for _, p := range g.Players {
			fmt.Printf("  %-6s %-10s", p.Color, p.Username)
			for _, t := range p.Tokens {
				switch {
				case t.IsFinished:
					fmt.Printf(" %s:done", t.ID)
				case t.IsHome:
					fmt.Printf(" %s:home", t.ID)
				default:
					fmt.Printf(" %s:%d", t.ID, t.Position)
				}
			}
			fmt.Println()
		}
		if len(s.AvailableMoves) > 0 {
			fmt.Printf("  movable: %s\n", strings.Join(s.AvailableMoves, ", "))
		}
	}
	if s.Spectating {
		fmt.Printf("spectating %s status=%s\n", s.SpectatingGame.ID, s.SpectatingGame.Status)
	}
}
