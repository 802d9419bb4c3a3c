package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/auth"
	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
	"github.com/yenshow/ba-frontend/internal/modbus"
)

// passwordEnv lets scripts keep the password off the command line.
const passwordEnv = "BACONSOLE_PASSWORD"

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in: run baconsole login first")

// runCommand executes one scripting command against the persisted session.
func runCommand(ctx context.Context, command string, args []string, cfg *config.Config, log *logging.Logger, stdout io.Writer) error {
	c, err := openConsole(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	switch command {
	case "login":
		return cmdLogin(ctx, c, args, stdout)
	case "logout":
		c.auth.Logout()
		fmt.Fprintln(stdout, "logged out")
		return nil
	case "whoami":
		return cmdWhoami(ctx, c, args, stdout)
	case "modbus":
		return cmdModbus(ctx, c, args, stdout)
	case "rtsp":
		return cmdRTSP(ctx, c, args, stdout)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, command)
}

// ============================================================================
// Session commands
// ============================================================================

func cmdLogin(ctx context.Context, c *console, args []string, stdout io.Writer) error {
	fs := newFlagSet("login")
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "account password (or "+passwordEnv+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv(passwordEnv)
	}

	sess, err := c.auth.Login(ctx, auth.Credentials{Username: *username, Password: *password})
	if err != nil {
		return describe("login", err)
	}
	fmt.Fprintf(stdout, "logged in as %s (%s)\n", sess.User.Username, sess.User.Role)
	return nil
}

func cmdWhoami(ctx context.Context, c *console, args []string, stdout io.Writer) error {
	fs := newFlagSet("whoami")
	refresh := fs.Bool("refresh", false, "re-fetch the user from the backend")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess := c.store.Get()
	if !sess.IsAuthenticated() {
		return errNotLoggedIn
	}
	user := sess.User
	if *refresh {
		fresh, err := c.auth.FetchCurrentUser(ctx)
		if err != nil {
			return describe("refresh user", err)
		}
		user = fresh
	}

	out := map[string]any{
		"user":        user,
		"permissions": auth.PermissionsFor(user.Role),
	}
	if info, err := auth.InspectToken(sess.Token); err == nil && !info.ExpiresAt.IsZero() {
		out["tokenExpiresAt"] = info.ExpiresAt
		out["tokenExpired"] = info.Expired(time.Now())
	}
	return printJSON(stdout, out)
}

// ============================================================================
// Modbus commands
// ============================================================================

func cmdModbus(ctx context.Context, c *console, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: modbus read|write|health|devices", errUsage)
	}
	sub, args := args[0], args[1:]

	fs := newFlagSet("modbus " + sub)
	host := fs.String("host", "", "device host")
	port := fs.Uint("port", 502, "device port")
	unit := fs.Uint("unit", 0, "Modbus unit id")
	space := fs.String("space", string(modbus.SpaceHoldingRegisters), "memory space to read")
	address := fs.Uint("address", 0, "start address")
	length := fs.Uint("length", 1, "number of items to read")
	value := fs.String("value", "", "coil value(s) to write, comma separated (1,0,true,false)")
	limit := fs.Int("limit", 0, "page size for devices (0 = backend default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !c.modbus.Anonymous() && !c.store.IsAuthenticated() {
		return errNotLoggedIn
	}

	if sub == "devices" {
		var f modbus.DeviceFilter
		if *limit > 0 {
			f.Limit = apiclient.Ptr(*limit)
		}
		page, err := c.registry.ListDevices(ctx, f)
		if err != nil {
			return describe("list modbus devices", err)
		}
		return printJSON(stdout, page)
	}

	if *port > 0xFFFF || *unit > 0xFF || *address > 0xFFFF || *length > 0xFFFF {
		return apiclient.NewBadRequest("port, address and length must fit 16 bits and unit 8 bits")
	}
	conn := modbus.Connection{Host: *host, Port: uint16(*port), UnitID: uint8(*unit)}

	switch sub {
	case "read":
		sp, err := modbus.ParseSpace(*space)
		if err != nil {
			return err
		}
		reading, err := c.modbus.Read(ctx, sp, uint16(*address), uint16(*length), conn)
		if err != nil {
			return describe("modbus read", err)
		}
		return printJSON(stdout, reading)
	case "write":
		values, err := parseCoilValues(*value)
		if err != nil {
			return err
		}
		var res *modbus.WriteResult
		if len(values) == 1 {
			res, err = c.modbus.WriteCoil(ctx, uint16(*address), values[0], conn)
		} else {
			res, err = c.modbus.WriteCoils(ctx, uint16(*address), values, conn)
		}
		if err != nil {
			return describe("modbus write", err)
		}
		return printJSON(stdout, res)
	case "health":
		h, err := c.modbus.Health(ctx, conn)
		if err != nil {
			return describe("modbus health", err)
		}
		return printJSON(stdout, h)
	}
	return fmt.Errorf("%w: unknown modbus command %q", errUsage, sub)
}

// parseCoilValues parses "1,0,true" into coil states.
func parseCoilValues(s string) ([]bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, apiclient.NewBadRequest("-value is required")
	}
	parts := strings.Split(s, ",")
	values := make([]bool, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseBool(strings.TrimSpace(p))
		if err != nil {
			return nil, apiclient.NewBadRequest("invalid coil value %q", p)
		}
		values = append(values, v)
	}
	return values, nil
}

// ============================================================================
// RTSP commands
// ============================================================================

func cmdRTSP(ctx context.Context, c *console, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: rtsp status|start|stop", errUsage)
	}
	sub, args := args[0], args[1:]

	fs := newFlagSet("rtsp " + sub)
	id := fs.String("id", "", "stream id")
	rtspURL := fs.String("url", "", "camera RTSP URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !c.store.IsAuthenticated() {
		return errNotLoggedIn
	}

	switch sub {
	case "status":
		if *id == "" {
			streams, err := c.rtsp.Status(ctx)
			if err != nil {
				return describe("rtsp status", err)
			}
			return printJSON(stdout, streams)
		}
		stream, err := c.rtsp.StreamStatus(ctx, *id)
		if err != nil {
			return describe("rtsp status", err)
		}
		if stream == nil {
			return fmt.Errorf("stream %q does not exist", *id)
		}
		return printJSON(stdout, stream)
	case "start":
		stream, err := c.rtsp.Start(ctx, *rtspURL)
		if err != nil {
			return describe("rtsp start", err)
		}
		return printJSON(stdout, stream)
	case "stop":
		res, err := c.rtsp.Stop(ctx, *id)
		if err != nil {
			return describe("rtsp stop", err)
		}
		return printJSON(stdout, res)
	}
	return fmt.Errorf("%w: unknown rtsp command %q", errUsage, sub)
}

// ============================================================================
// Helpers
// ============================================================================

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// describe prefixes a gateway failure with the operation and its kind. An
// unauthorized failure already cleared the persisted session.
func describe(op string, err error) error {
	if apiclient.KindOf(err) == apiclient.KindUnauthorized {
		return fmt.Errorf("%s: %s (session cleared, log in again): %w", op, apiclient.MessageOf(err), err)
	}
	return fmt.Errorf("%s [%s]: %w", op, apiclient.KindOf(err), err)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
