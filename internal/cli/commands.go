package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/service"
	"github.com/spf13/cobra"
)

const birthDateLayout = "2006-01-02"

func (s *Shell) commands() *cobra.Command {
	root := &cobra.Command{
		Use:           "player",
		Short:         "Player service shell",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(s.out)
	root.SetErr(s.errOut)

	root.AddCommand(
		s.leaf("exit", "Exit the shell", 0, func(cmd *cobra.Command, args []string) error {
			s.quit = true
			return nil
		}, "quit"),

		// Listener lifecycle
		s.leaf("start [listener...]", "Start listeners, all of them when none is named", 0, s.toggleListeners(true)),
		s.leaf("stop [listener...]", "Stop listeners, all of them when none is named", 0, s.toggleListeners(false)),
		s.leaf("listeners", "Show listener status", 0, s.showListeners),

		// Player commands
		s.leaf("register [distributorId] [pseudo] [firstName] [lastName] [birthDate(yyyy-MM-dd)]", "Register a player", 5, s.register),
		s.leaf("purchase [playerId] [gameId]", "Purchase a game", 2, s.pair(s.svc.Purchase)),
		s.leaf("review [playerId] [gameId] [rating(0-5)] [comment...]", "Review a game", 3, s.review),
		s.leaf("install [playerId] [gameId] [platform]", "Install a game at its published version", 3, s.install),
		s.leaf("update [playerId] [gameId] [platform]", "Update a game to its published version", 3, s.update),
		s.leaf("uninstall [playerId] [gameId] [platform] [comment...]", "Uninstall a game", 3, s.uninstall),
		s.playtime(),
		s.leaf("crash [playerId] [gameId] [platform] [version] [errorCode] [message...]", "Report a crash", 5, s.crash),
		s.leaf("wishlist-add [playerId] [gameId]", "Add a game to the wishlist", 2, s.pair(s.svc.AddWishedGame)),
		s.leaf("wishlist-remove [playerId] [gameId]", "Remove a game from the wishlist", 2, s.pair(s.svc.RemoveWishedGame)),
		s.leaf("react [playerId] [reviewId] [0=NOTHING|1=POSITIVE|2=NEGATIVE]", "React to a review", 3, s.react),
		s.leaf("ask-page [playerId]", "Ask for a player page", 1, s.askPage),
		s.leaf("ask-games [playerId] [page]", "Ask for a games page", 2, s.askGames),
		s.leaf("ask-reviews [playerId] [gameId]", "Ask for the reviews of a game", 2, s.pair(s.svc.AskGameReviews)),

		// Direct store commands
		s.leaf("db-install [playerId] [gameId] [platform] [version]", "Add an installation row", 4, s.dbInstall),
		s.leaf("db-update [playerId] [gameId] [platform] [version]", "Overwrite an installed version", 4, s.dbUpdate),
		s.leaf("db-uninstall [playerId] [gameId] [platform]", "Remove an installation row", 3, s.dbUninstall),
		s.leaf("get-installed [playerId]", "List installed games", 0, s.getInstalled),
		s.leaf("logs [limit]", "Show the consume log", 0, s.logs),
	)
	return root
}

// leaf builds a command taking raw positional arguments, so values like "-1" reach validation.
func (s *Shell) leaf(use, short string, nargs int, run func(*cobra.Command, []string) error, aliases ...string) *cobra.Command {
	return &cobra.Command{
		Use:                   use,
		Short:                 short,
		Aliases:               aliases,
		Args:                  minArgs(nargs),
		DisableFlagParsing:    true,
		DisableFlagsInUseLine: true,
		RunE:                  run,
	}
}

func (s *Shell) playtime() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "playtime start [playerId] [gameId] | playtime stop",
		Short:                 "Start or stop the playtime timer",
		DisableFlagParsing:    true,
		DisableFlagsInUseLine: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return usageError{want: 1, got: len(args)}
		},
	}
	cmd.AddCommand(
		s.leaf("start [playerId] [gameId]", "Start the timer", 2, func(c *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "playerId", "gameId")
			if err != nil {
				return err
			}
			timer, err := s.svc.StartPlaytime(s.timer, ids[0], ids[1])
			if err != nil {
				return err
			}
			s.timer = timer
			s.printf(c, "Playtime timer started for player %d, game %d. Use 'playtime stop' to send it.\n", ids[0], ids[1])
			return nil
		}),
		s.leaf("stop", "Stop the timer and send the elapsed time", 0, func(c *cobra.Command, _ []string) error {
			timer, session, err := s.svc.StopPlaytime(c.Context(), s.timer)
			if err != nil {
				return err
			}
			s.timer = timer
			s.printf(c, "Playtime timer stopped. Elapsed %s, sent for player %d, game %d.\n", session.Display(), session.PlayerID, session.GameID)
			return nil
		}),
	)
	return cmd
}

func (s *Shell) toggleListeners(start bool) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, names []string) error {
		if len(names) == 0 {
			names = s.listeners.Names()
		}
		op, verb := s.listeners.Stop, "stopped"
		if start {
			op, verb = s.listeners.Start, "started"
		}
		for _, name := range names {
			if err := op(name); err != nil {
				s.report(c, err)
				continue
			}
			s.printf(c, "listener %s %s\n", name, verb)
		}
		return nil
	}
}

func (s *Shell) showListeners(c *cobra.Command, _ []string) error {
	status := s.listeners.Status()
	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "stopped"
		if status[name] {
			state = "running"
		}
		s.printf(c, "%-20s %s\n", name, state)
	}
	return nil
}

func (s *Shell) register(c *cobra.Command, args []string) error {
	distributorID, err := domain.ParseID("distributorId", args[0])
	if err != nil {
		return err
	}
	birth, err := time.ParseInLocation(birthDateLayout, args[4], time.Local)
	if err != nil {
		return domain.ErrValidation(fmt.Sprintf("birthDate must be yyyy-MM-dd, got %q", args[4]))
	}
	err = s.svc.Register(c.Context(), service.Registration{
		DistributorID: distributorID,
		Pseudo:        args[1],
		FirstName:     args[2],
		LastName:      args[3],
		BirthDate:     birth,
	})
	if err != nil {
		return err
	}
	s.printf(c, "Registration of %s sent.\n", args[1])
	return nil
}

// pair adapts the commands that only take a player id and another id.
func (s *Shell) pair(fn func(ctx context.Context, a, b int64) error) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		ids, err := parseIDs(args, "playerId", "id")
		if err != nil {
			return err
		}
		if err := fn(c.Context(), ids[0], ids[1]); err != nil {
			return err
		}
		s.printf(c, "%s sent.\n", c.Name())
		return nil
	}
}

func (s *Shell) review(c *cobra.Command, args []string) error {
	ids, err := parseIDs(args, "playerId", "gameId")
	if err != nil {
		return err
	}
	rating, err := domain.ParseInt("rating", args[2])
	if err != nil {
		return err
	}
	if err := s.svc.Review(c.Context(), ids[0], ids[1], rating, rest(args, 3)); err != nil {
		return err
	}
	s.printf(c, "Review of game %d sent.\n", ids[1])
	return nil
}

func (s *Shell) install(c *cobra.Command, args []string) error {
	ids, err := parseIDs(args, "playerId", "gameId")
	if err != nil {
		return err
	}
	g, err := s.svc.Install(c.Context(), ids[0], ids[1], args[2])
	if err != nil {
		return err
	}
	s.printf(c, "Installed game %d for player %d on %s at version %s (id %d).\n", g.GameID, g.PlayerID, g.Platform, g.InstalledVersion, g.ID)
	return nil
}

func (s *Shell) update(c *cobra.Command, args []string) error {
	ids, err := parseIDs(args, "playerId", "gameId")
	if err != nil {
		return err
	}
	g, err := s.svc.Update(c.Context(), ids[0], ids[1], args[2])
	if err != nil {
		return err
	}
	s.printf(c, "Updated game %d for player %d on %s to version %s.\n", g.GameID, g.PlayerID, g.Platform, g.InstalledVersion)
	return nil
}

func (s *Shell) uninstall(c *cobra.Command, args []string) error {
	ids, err := parseIDs(args, "playerId", "gameId")
	if err != nil {
		return err
	}
	removed, err := s.svc.Uninstall(c.Context(), ids[0], ids[1], args[2], rest(args, 3))
	if err != nil {
		return err
	}
	if removed == 0 {
		s.printf(c, "Warning: game %d was not installed for player %d on %s.\n", ids[1], ids[0], args[2])
		return nil
	}
	s.printf(c, "Uninstalled game %d for player %d on %s.\n", ids[1], ids[0], args[2])
	return nil
}

func (s *Shell) crash(c *cobra.Command, args []string) error {
	ids, err := parseIDs(args, "playerId", "gameId")
	if err != nil {
		return err
	}
	code, err := domain.ParseID("errorCode", args[4])
	if err != nil {
		return err
	}
	var message string
	if m := rest(args, 5); m != nil {
		message = *m
	}
	err = s.svc.ReportCrash(c.Context(), service.CrashReport{
		PlayerID:         ids[0],
		GameID:           ids[1],
		Platform:         args[2],
		InstalledVersion: args[3],
		ErrorCode:        code,
		Message:          message,
	})
	if err != nil {
		return err
	}
	s.printf(c, "Crash report for game %d sent.\n", ids[1])
	return nil
}

func (s *Shell) react(c *cobra.Command, args []string) error {
	ids, err := parseIDs(args, "playerId", "reviewId")
	if err != nil {
		return err
	}
	reactType, err := domain.ParseInt("reactType", args[2])
	if err != nil {
		return err
	}
	if err := s.svc.ReactReview(c.Context(), ids[0], ids[1], reactType); err != nil {
		return err
	}
	s.printf(c, "Reaction to review %d sent.\n", ids[1])
	return nil
}

func (s *Shell) askPage(c *cobra.Command, args []string) error {
	playerID, err := domain.ParseID("playerId", args[0])
	if err != nil {
		return err
	}
	if err := s.svc.AskPlayerPage(c.Context(), playerID); err != nil {
		return err
	}
	s.printf(c, "Player page requested.\n")
	return nil
}

func (s *Shell) askGames(c *cobra.Command, args []string) error {
	playerID, err := domain.ParseID("playerId", args[0])
	if err != nil {
		return err
	}
	page, err := domain.ParseInt("page", args[1])
	if err != nil {
		return err
	}
	if err := s.svc.AskGamesPage(c.Context(), playerID, page); err != nil {
		return err
	}
	s.printf(c, "Games page %d requested.\n", page)
	return nil
}

func (s *Shell) dbInstall(c *cobra.Command, args []string) error {
	ids, err := parseIDs(args, "playerId", "gameId")
	if err != nil {
		return err
	}
	g, err := s.svc.AdminInsert(c.Context(), ids[0], ids[1], args[2], args[3])
	if err != nil {
		return err
	}
	s.printf(c, "[Database] Installed game added: %s\n", formatGame(*g))
	return nil
}

func (s *Shell) dbUpdate(c *cobra.Command, args []string) error {
	ids, err := parseIDs(args, "playerId", "gameId")
	if err != nil {
		return err
	}
	g, err := s.svc.AdminSetVersion(c.Context(), ids[0], ids[1], args[2], args[3])
	if err != nil {
		return err
	}
	s.printf(c, "[Database] Game updated: %s\n", formatGame(*g))
	return nil
}

func (s *Shell) dbUninstall(c *cobra.Command, args []string) error {
	ids, err := parseIDs(args, "playerId", "gameId")
	if err != nil {
		return err
	}
	removed, err := s.svc.AdminDelete(c.Context(), ids[0], ids[1], args[2])
	if err != nil {
		return err
	}
	s.printf(c, "[Database] Removed %d row(s) for player %d, game %d on %s.\n", removed, ids[0], ids[1], args[2])
	return nil
}

func (s *Shell) getInstalled(c *cobra.Command, args []string) error {
	var games []domain.InstalledGame
	var err error
	if len(args) > 0 {
		playerID, perr := domain.ParseID("playerId", args[0])
		if perr != nil {
			return perr
		}
		games, err = s.svc.ListByPlayer(c.Context(), playerID)
	} else {
		games, err = s.svc.ListInstalled(c.Context())
	}
	if err != nil {
		return err
	}
	if len(games) == 0 {
		s.printf(c, "No installed games.\n")
		return nil
	}
	for _, g := range games {
		s.printf(c, "%s\n", formatGame(g))
	}
	return nil
}

func (s *Shell) logs(c *cobra.Command, args []string) error {
	limit := 0
	if len(args) > 0 {
		n, err := domain.ParseInt("limit", args[0])
		if err != nil {
			return err
		}
		limit = n
	}
	entries, err := s.audit.List(c.Context(), limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s.printf(c, "#%d %s [%s] %s: %s\n", e.Seq, e.ConsumedAt.Format(time.RFC3339), e.Listener, e.RoutingKey, e.Event)
	}
	return nil
}

func (s *Shell) printf(c *cobra.Command, format string, a ...interface{}) {
	fmt.Fprintf(c.OutOrStdout(), format, a...)
}

func formatGame(g domain.InstalledGame) string {
	return fmt.Sprintf("ID=%d, Player=%d, Game=%d, Platform=%s, Version=%s", g.ID, g.PlayerID, g.GameID, g.Platform, g.InstalledVersion)
}

func parseIDs(args []string, names ...string) ([]int64, error) {
	ids := make([]int64, len(names))
	for i, name := range names {
		id, err := domain.ParseID(name, args[i])
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// rest joins the trailing words from index i, or returns nil when there are none.
func rest(args []string, i int) *string {
	if len(args) <= i {
		return nil
	}
	s := strings.Join(args[i:], " ")
	return &s
}
