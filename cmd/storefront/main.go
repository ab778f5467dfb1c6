// Command storefront runs the device side of the pizzeria from a terminal:
// browse the menu, check out a cart, follow an order while it cooks and, for
// administrators, move orders through the kitchen.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/franciscosanchezn/pizzeria/internal/cache"
	"github.com/franciscosanchezn/pizzeria/internal/config"
	"github.com/franciscosanchezn/pizzeria/internal/lifecycle"
	"github.com/franciscosanchezn/pizzeria/internal/models"
	"github.com/franciscosanchezn/pizzeria/internal/notify"
	"github.com/franciscosanchezn/pizzeria/internal/progress"
	"github.com/franciscosanchezn/pizzeria/internal/remote"
	"github.com/franciscosanchezn/pizzeria/internal/storefront"
	"github.com/franciscosanchezn/pizzeria/internal/syncpolicy"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.WarnLevel)
	log.SetOutput(os.Stderr)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "storefront",
		Usage: "order pizza and follow the kitchen from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "log in before running the command", EnvVars: []string{"STOREFRONT_EMAIL"}},
			&cli.StringFlag{Name: "password", Usage: "password for --email", EnvVars: []string{"STOREFRONT_PASSWORD"}},
			&cli.BoolFlag{Name: "verbose", Usage: "log sync decisions to stderr"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				log.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "menu",
				Usage:  "list the menu",
				Action: withSession(menuAction),
			},
			{
				Name:      "checkout",
				Usage:     "place an order",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "item", Aliases: []string{"i"}, Usage: "menu item as id[:quantity], repeatable", Required: true},
					&cli.BoolFlag{Name: "delivery", Usage: "deliver instead of pickup"},
					&cli.StringFlag{Name: "address"},
					&cli.StringFlag{Name: "house"},
					&cli.StringFlag{Name: "phone"},
					&cli.StringFlag{Name: "pickup-time"},
					&cli.StringFlag{Name: "payment", Value: string(models.PaymentCash), Usage: "cash or card_on_receipt"},
					&cli.StringFlag{Name: "notes"},
				},
				Action: withSession(checkoutAction),
			},
			{
				Name:   "orders",
				Usage:  "list orders (all of them for administrators)",
				Action: withSession(ordersAction),
			},
			{
				Name:      "status",
				Usage:     "move an order to a new status",
				ArgsUsage: "ORDER_ID STATUS",
				Action:    withSession(statusAction),
			},
			{
				Name:      "track",
				Usage:     "show an order and its cooking progress",
				ArgsUsage: "ORDER_ID",
				Action:    withSession(trackAction),
			},
			{
				Name:      "watch",
				Usage:     "follow cooking progress until the order is ready",
				ArgsUsage: "ORDER_ID",
				Action:    withSession(watchAction),
			},
			{
				Name:      "link",
				Usage:     "apply a status link such as ?action=set_status&order=ID&status=ready",
				ArgsUsage: "URL",
				Action:    withSession(linkAction),
			},
			{
				Name:      "register",
				Usage:     "create a customer account",
				ArgsUsage: "EMAIL PASSWORD [NAME]",
				Action:    withSession(registerAction),
			},
			{
				Name:   "whoami",
				Usage:  "show the logged in user",
				Action: withSession(whoamiAction),
			},
			{
				Name:   "logout",
				Usage:  "forget the logged in user",
				Action: withSession(logoutAction),
			},
			{
				Name:      "favorite",
				Usage:     "toggle a menu item in the user's favorites",
				ArgsUsage: "PIZZA_ID",
				Action:    withSession(favoriteAction),
			},
			{
				Name:   "settings",
				Usage:  "show site settings",
				Action: withSession(settingsAction),
				Subcommands: []*cli.Command{
					{
						Name:  "save",
						Usage: "update site settings (administrators only)",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "phone"},
							&cli.StringFlag{Name: "logo"},
							&cli.StringFlag{Name: "special-title"},
							&cli.StringFlag{Name: "special-description"},
							&cli.StringFlag{Name: "special-badge"},
						},
						Action: withSession(saveSettingsAction),
					},
				},
			},
		},
	}
}

type sessionAction func(c *cli.Context, session *storefront.Session) error

// withSession opens the cache, connects to the store and logs in when
// credentials were given, then runs the action
func withSession(action sessionAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		conf, err := config.LoadStorefrontConfig()
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}

		store, err := cache.Open(conf.CachePath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("open cache %s: %v", conf.CachePath, err), 2)
		}
		defer store.Close()

		session := storefront.NewSession(store, newGateway(conf), sessionOptions(conf)...)
		defer session.Close()

		if _, freshness, err := session.ReloadSettings(c.Context); err != nil {
			log.WithError(err).WithField("source", freshness.String()).Debug("Settings not loaded from the store")
		}

		if email := c.String("email"); email != "" {
			if _, err := session.Login(c.Context, email, c.String("password")); err != nil {
				return cli.Exit(fmt.Sprintf("login failed: %v", err), 1)
			}
		}
		return action(c, session)
	}
}

func newGateway(conf *config.StorefrontConfig) *remote.Gateway {
	opts := []remote.Option{remote.WithTimeout(conf.StoreTimeout)}
	creds := conf.Integrations
	if creds.StoreClientID != "" && creds.StoreClientSecret != "" {
		tokens := remote.NewClientCredentials(conf.StoreBaseURL, creds.StoreClientID, creds.StoreClientSecret,
			&http.Client{Timeout: conf.StoreTimeout})
		opts = append(opts, remote.WithTokenSource(tokens))
	}
	return remote.New(conf.StoreBaseURL, opts...)
}

func sessionOptions(conf *config.StorefrontConfig) []storefront.Option {
	opts := []storefront.Option{
		storefront.WithProgress(progress.ForStages(conf.CookingStages, conf.CookingPollInterval)),
		storefront.WithIntegrations(conf.Integrations),
	}
	if conf.TelegramAPIURL != "" {
		opts = append(opts, storefront.WithBotOptions(notify.WithAPIURL(conf.TelegramAPIURL)))
	}
	return opts
}

// parseItem reads an id[:quantity] cart argument
func parseItem(arg string) (string, int, error) {
	id, rawQty, hasQty := strings.Cut(strings.TrimSpace(arg), ":")
	if id == "" {
		return "", 0, fmt.Errorf("empty item in %q", arg)
	}
	if !hasQty {
		return id, 1, nil
	}
	qty, err := strconv.Atoi(rawQty)
	if err != nil || qty < 1 {
		return "", 0, fmt.Errorf("invalid quantity in %q", arg)
	}
	return id, qty, nil
}

func findPizza(menu []models.Pizza, id string) (models.Pizza, bool) {
	for _, p := range menu {
		if p.ID == id {
			return p, true
		}
	}
	return models.Pizza{}, false
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return cli.Exit(fmt.Sprintf("usage: %s %s", c.Command.FullName(), c.Command.ArgsUsage), 2)
	}
	return nil
}

// syncNote explains where a write ended up when the store was not reached
func syncNote(w io.Writer, result syncpolicy.Result) {
	if !result.Synced() && result.LocalOK {
		fmt.Fprintf(w, "saved on this device only: %v\n", result.Err)
	}
}

func sourceNote(w io.Writer, freshness syncpolicy.Freshness) {
	if freshness != syncpolicy.FromRemote {
		fmt.Fprintf(w, "(store unreachable, showing %s data)\n", freshness)
	}
}

func menuAction(c *cli.Context, session *storefront.Session) error {
	menu, freshness, err := session.Menu(c.Context)
	if err != nil {
		log.WithError(err).Debug("Menu fetch failed")
	}
	out := c.App.Writer
	sourceNote(out, freshness)
	for _, p := range menu {
		marks := ""
		if p.IsNew {
			marks += " [new]"
		}
		if p.IsPromo {
			marks += " [promo]"
		}
		fmt.Fprintf(out, "%-14s %-24s %8.2f  %s%s\n", p.ID, p.Name, p.Price, p.Category, marks)
	}
	return nil
}

func checkoutAction(c *cli.Context, session *storefront.Session) error {
	menu, _, _ := session.Menu(c.Context)
	cart := session.Cart()
	cart.Clear()
	for _, arg := range c.StringSlice("item") {
		id, qty, err := parseItem(arg)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		pizza, ok := findPizza(menu, id)
		if !ok {
			return cli.Exit(fmt.Sprintf("%s is not on the menu", id), 2)
		}
		if err := cart.Add(pizza, qty); err != nil {
			return cli.Exit(err.Error(), 2)
		}
	}

	req := lifecycle.CheckoutRequest{
		Type:          models.OrderTypePickup,
		PickupTime:    c.String("pickup-time"),
		PaymentMethod: models.PaymentMethod(c.String("payment")),
		Notes:         c.String("notes"),
	}
	if c.Bool("delivery") {
		req.Type = models.OrderTypeDelivery
		req.Address = c.String("address")
		req.HouseNumber = c.String("house")
		req.Phone = c.String("phone")
	}

	order, result, err := session.Checkout(c.Context, req)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	out := c.App.Writer
	fmt.Fprintf(out, "order %s placed: %d items, total %.2f\n", order.ID, len(order.Items), order.Total)
	syncNote(out, result)
	return nil
}

func ordersAction(c *cli.Context, session *storefront.Session) error {
	orders, freshness, err := session.Orders(c.Context)
	if err != nil {
		log.WithError(err).Debug("Order fetch failed")
	}
	out := c.App.Writer
	if session.IsAdmin() {
		sourceNote(out, freshness)
	}
	for _, o := range orders {
		fmt.Fprintf(out, "%-16s %-10s %-9s %8.2f  %s\n", o.ID, o.Status, o.Type, o.Total, o.Date)
	}
	return nil
}

func statusAction(c *cli.Context, session *storefront.Session) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	status, err := lifecycle.ParseStatus(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	order, result, err := session.SetOrderStatus(c.Context, c.Args().Get(0), status)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(c.App.Writer, "order %s is now %s\n", order.ID, notify.StatusLabel(order.Status))
	syncNote(c.App.Writer, result)
	return nil
}

func trackAction(c *cli.Context, session *storefront.Session) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	id := c.Args().Get(0)
	order, freshness, err := session.TrackOrder(c.Context, id)
	if freshness == syncpolicy.FromDefault {
		return cli.Exit(fmt.Sprintf("order %s not found: %v", id, err), 1)
	}
	out := c.App.Writer
	sourceNote(out, freshness)
	fmt.Fprintf(out, "order %s: %s, total %.2f\n", order.ID, notify.StatusLabel(order.Status), order.Total)

	snapshot, err := session.CookingProgress(c.Context, id)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	printSnapshot(out, snapshot)
	return nil
}

func watchAction(c *cli.Context, session *storefront.Session) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	out := c.App.Writer
	last := -1
	err := session.WatchOrder(ctx, c.Args().Get(0), func(s progress.Snapshot) {
		if s.Stage != last {
			printSnapshot(out, s)
			last = s.Stage
		}
		if s.Ready {
			cancel()
		}
	})
	if err != nil && ctx.Err() == nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func printSnapshot(w io.Writer, s progress.Snapshot) {
	if !s.Started {
		fmt.Fprintln(w, s.Message)
		return
	}
	bar := strings.Repeat("#", s.Stage) + strings.Repeat(".", s.Stages-s.Stage)
	fmt.Fprintf(w, "[%s] %s\n", bar, s.Message)
}

func linkAction(c *cli.Context, session *storefront.Session) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	cleaned, handled, err := session.HandleDeepLink(c.Context, c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if !handled {
		fmt.Fprintln(c.App.Writer, "not a status link")
		return nil
	}
	fmt.Fprintln(c.App.Writer, cleaned)
	return nil
}

func registerAction(c *cli.Context, session *storefront.Session) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	user, err := session.Register(c.Context, c.Args().Get(0), c.Args().Get(1), c.Args().Get(2))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(c.App.Writer, "registered %s\n", user.Email)
	return nil
}

func whoamiAction(c *cli.Context, session *storefront.Session) error {
	user := session.User()
	if user == nil {
		fmt.Fprintln(c.App.Writer, "not logged in")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s (%s), %d favorites\n", user.Email, user.Role, len(user.Favorites))
	return nil
}

func logoutAction(c *cli.Context, session *storefront.Session) error {
	session.Logout()
	fmt.Fprintln(c.App.Writer, "logged out")
	return nil
}

func favoriteAction(c *cli.Context, session *storefront.Session) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	added, err := session.ToggleFavorite(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if added {
		fmt.Fprintln(c.App.Writer, "added to favorites")
	} else {
		fmt.Fprintln(c.App.Writer, "removed from favorites")
	}
	return nil
}

func settingsAction(c *cli.Context, session *storefront.Session) error {
	s := session.Settings()
	out := c.App.Writer
	fmt.Fprintf(out, "phone:   %s\nlogo:    %s\nspecial: %s (%s)\n", s.Phone, s.Logo, s.Special.Title, s.Special.Description)
	if session.IsAdmin() {
		fmt.Fprintf(out, "telegram configured: %t\n", s.HasTelegram())
	}
	return nil
}

func saveSettingsAction(c *cli.Context, session *storefront.Session) error {
	s := applySettingsFlags(c, session.Settings())
	result, err := session.SaveSettings(c.Context, s)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintln(c.App.Writer, "settings saved")
	syncNote(c.App.Writer, result)
	return nil
}

// applySettingsFlags overwrites only the fields whose flags were given
func applySettingsFlags(c *cli.Context, s models.Settings) models.Settings {
	fields := map[string]*string{
		"phone":               &s.Phone,
		"logo":                &s.Logo,
		"special-title":       &s.Special.Title,
		"special-description": &s.Special.Description,
		"special-badge":       &s.Special.Badge,
	}
	for name, field := range fields {
		if c.IsSet(name) {
			*field = c.String(name)
		}
	}
	return s
}
