package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"storefront/internal/carousel"
	"storefront/internal/config"
	"storefront/internal/dispatch"
	"storefront/internal/gateway"
	"storefront/internal/lifecycle"
	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/view"
	"storefront/internal/worker"
)

const usage = `usage: storefront [flags] <command>

commands:
  list                              show orders in the current filter
  act <order-id> <action> [text]    run process|deliver|reject|confirm-delivery|cancel
  image <order-id> [next|prev]...   step through an order's images
  watch                             re-list orders every refresh interval`

func main() {
	cfg := config.NewClient()

	sess := session.New(cfg.Token, func(returnTo string) {
		slog.Warn("session expired, sign in again", "return_to", returnTo)
	})

	role := model.Role(cfg.Role)
	if role == "" {
		id, err := sess.Identity()
		if err != nil {
			slog.Error("cannot determine role from token", "error", err)
			os.Exit(2)
		}
		role = id.Role
	}
	if !role.Valid() {
		slog.Error("unknown role", "role", role)
		os.Exit(2)
	}

	route := "/orders"
	if role == model.RoleAdmin {
		route = "/admin/orders"
	}

	gw := gateway.NewClient(cfg.GatewayAddress, cfg.Timeout)
	ctrl := view.New(view.Config{
		Role:       role,
		Route:      route,
		Gateway:    gw,
		Dispatcher: dispatch.New(gw, sess, dispatch.Config{PanicOnGuard: cfg.PanicOnGuard}),
		Session:    sess,
	})
	ctrl.SetFilter(cfg.StatusFilter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, ctrl, cfg, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, ctrl *view.Controller, cfg *config.Client, args []string) error {
	cmd := "list"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "list":
		if err := ctrl.Refresh(ctx); err != nil {
			return errors.New(ctrl.Banner())
		}
		render(os.Stdout, ctrl)
		return nil

	case "act":
		if len(args) < 3 {
			return errors.New(usage)
		}
		if err := ctrl.Refresh(ctx); err != nil {
			return errors.New(ctrl.Banner())
		}
		orderID, action, text := args[1], lifecycle.Action(args[2]), strings.Join(args[3:], " ")
		if err := ctrl.Act(ctx, orderID, action, text); err != nil {
			return errors.New(ctrl.Banner())
		}
		o, _ := ctrl.Order(orderID)
		fmt.Printf("%s is now %s\n", o.OrderNumber, o.OrderStatus)
		return nil

	case "image":
		if len(args) < 2 {
			return errors.New(usage)
		}
		if err := ctrl.Refresh(ctx); err != nil {
			return errors.New(ctrl.Banner())
		}
		return browse(os.Stdout, ctrl, args[1], args[2:])

	case "watch":
		if err := ctrl.Refresh(ctx); err != nil {
			slog.Error("initial refresh failed", "error", err)
		}
		render(os.Stdout, ctrl)
		worker.NewRefreshWorker(ctrl, cfg.RefreshInterval).Start(ctx, func(err error) {
			if err == nil {
				render(os.Stdout, ctrl)
			}
		})
		return nil
	}

	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

// browse prints the current image of an order, then one line per move.
func browse(w io.Writer, ctrl *view.Controller, orderID string, moves []string) error {
	if _, ok := ctrl.Order(orderID); !ok {
		return fmt.Errorf("%w: %s", view.ErrUnknownOrder, orderID)
	}

	f, ok := ctrl.Image(orderID)
	if !ok {
		fmt.Fprintln(w, "no images")
		return nil
	}
	printFrame(w, f)

	for _, m := range moves {
		switch m {
		case "next":
			f, _ = ctrl.NextImage(orderID)
		case "prev":
			f, _ = ctrl.PrevImage(orderID)
		default:
			return fmt.Errorf("unknown move %q, want next or prev", m)
		}
		printFrame(w, f)
	}
	return nil
}

func printFrame(w io.Writer, f carousel.Frame) {
	fmt.Fprintf(w, "%d/%d %s %s\n", f.Index+1, f.Total, f.ProductName, f.URL)
}

func render(w io.Writer, ctrl *view.Controller) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tSTATUS\tTOTAL\tCUSTOMER\tIMAGE\tACTIONS")
	for _, o := range ctrl.Orders() {
		image := "-"
		if f, ok := ctrl.Image(o.ID); ok {
			image = fmt.Sprintf("%s (%d/%d %s)", f.URL, f.Index+1, f.Total, f.ProductName)
		}

		var actions []string
		for _, opt := range ctrl.Options(o.ID) {
			a := string(opt.Action)
			if opt.Input.Required() {
				a += " <" + opt.Input.Label + ">"
			}
			actions = append(actions, a)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			o.ID, o.OrderNumber, o.OrderStatus, o.TotalAmount, o.Customer.Name, image, strings.Join(actions, ", "))
	}
	tw.Flush()

	if ctrl.Role() == model.RoleAdmin {
		counts := ctrl.Counts()
		var parts []string
		for _, s := range model.Statuses {
			parts = append(parts, fmt.Sprintf("%s=%d", s, counts[s]))
		}
		fmt.Fprintln(w, strings.Join(parts, " "))
	}
}
