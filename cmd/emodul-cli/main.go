package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/joshp123/emodul-golang/emodul"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := newClient()

	switch os.Args[1] {
	case "modules":
		modulesCmd(ctx, client, os.Args[2:])
	case "zones":
		zonesCmd(ctx, client, os.Args[2:])
	case "tiles":
		tilesCmd(ctx, client, os.Args[2:])
	case "set-temp":
		setTempCmd(ctx, client, os.Args[2:])
	case "set-zone":
		setZoneCmd(ctx, client, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func newClient() *emodul.Client {
	client, err := emodul.NewClient(emodul.Config{
		Username: os.Getenv("EMODUL_USERNAME"),
		Password: os.Getenv("EMODUL_PASSWORD"),
		BaseURL:  os.Getenv("EMODUL_BASE_URL"),
	})
	if err != nil {
		fatal("credentials", err)
	}
	return client
}

func language() string {
	if lang := os.Getenv("EMODUL_LANGUAGE"); lang != "" {
		return lang
	}
	return emodul.DefaultLanguage
}

func modulesCmd(ctx context.Context, client *emodul.Client, args []string) {
	output := parseOutput(args)

	modules, err := client.ListModules(ctx)
	if err != nil {
		fatal("list modules", err)
	}
	if output.json {
		output.printJSON(modules)
		return
	}

	rows := [][]string{{"NAME", "UDID", "TYPE", "STATUS", "VERSION"}}
	for _, module := range modules {
		rows = append(rows, []string{
			module.Name, module.UDID, module.Type, module.ControllerStatus, module.Version,
		})
	}
	output.table(rows)
}

func zonesCmd(ctx context.Context, client *emodul.Client, args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	output := parseOutput(args[1:])

	module := resolveModule(ctx, client, args[0])
	snapshot, err := client.ModuleState(ctx, module.UDID)
	if err != nil {
		fatal("module state", err)
	}
	if output.json {
		output.printJSON(snapshot.Zones)
		return
	}

	rows := [][]string{{"ID", "NAME", "MODE", "STATE", "CURRENT", "TARGET", "HUMIDITY"}}
	for _, zone := range snapshot.Zones {
		rows = append(rows, []string{
			strconv.Itoa(zone.ID),
			zone.Name,
			string(zone.Mode),
			string(zone.State),
			formatTemp(zone.CurrentTemperature),
			formatTemp(zone.TargetTemperature),
			formatPercent(zone.Humidity),
		})
	}
	output.table(rows)
}

func tilesCmd(ctx context.Context, client *emodul.Client, args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	output := parseOutput(args[1:])

	module := resolveModule(ctx, client, args[0])
	snapshot, err := client.ModuleState(ctx, module.UDID)
	if err != nil {
		fatal("module state", err)
	}
	if output.json {
		output.printJSON(snapshot.Tiles)
		return
	}

	translations, err := client.Translations(ctx, language())
	if err != nil {
		fatal("translations", err)
	}

	rows := [][]string{{"ID", "KIND", "LABEL", "VALUE", "STATE"}}
	for _, tile := range snapshot.Tiles {
		value := ""
		if tile.Value != nil {
			value = strconv.FormatFloat(*tile.Value, 'g', -1, 64) + tile.Unit
		}
		state := ""
		if tile.On != nil {
			if *tile.On {
				state = "on"
			} else {
				state = "off"
			}
		}
		if tile.Kind == emodul.TileText {
			state = translations.Text(tile.StatusTxtID)
		}
		if tile.Kind == emodul.TileSoftwareVersion {
			value = tile.Version
		}
		rows = append(rows, []string{
			strconv.Itoa(tile.ID),
			string(tile.Kind),
			translations.TileLabel(tile),
			value,
			state,
		})
	}
	output.table(rows)
}

func setTempCmd(ctx context.Context, client *emodul.Client, args []string) {
	if len(args) < 3 {
		usage()
		os.Exit(2)
	}

	target, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		fatal("parse temperature", err)
	}

	module := resolveModule(ctx, client, args[0])
	snapshot, err := client.ModuleState(ctx, module.UDID)
	if err != nil {
		fatal("module state", err)
	}
	zone := resolveZone(snapshot, args[1])

	if err := client.SetConstTemp(ctx, module.UDID, zone, target); err != nil {
		fatal("set temperature", err)
	}
	fmt.Printf("zone %s set to %g\n", zone.Name, target)
}

func setZoneCmd(ctx context.Context, client *emodul.Client, args []string) {
	if len(args) < 3 || (args[2] != "on" && args[2] != "off") {
		usage()
		os.Exit(2)
	}

	module := resolveModule(ctx, client, args[0])
	snapshot, err := client.ModuleState(ctx, module.UDID)
	if err != nil {
		fatal("module state", err)
	}
	zone := resolveZone(snapshot, args[1])

	if err := client.SetZone(ctx, module.UDID, zone.ID, args[2] == "on"); err != nil {
		fatal("set zone", err)
	}
	fmt.Printf("zone %s turned %s\n", zone.Name, args[2])
}

func parseOutput(args []string) outputMode {
	flags := flag.NewFlagSet("output", flag.ExitOnError)
	jsonOut := flags.Bool("json", false, "output JSON")
	_ = flags.Parse(args)
	return outputMode{json: *jsonOut}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  emodul-cli modules [--json]
  emodul-cli zones <module> [--json]
  emodul-cli tiles <module> [--json]
  emodul-cli set-temp <module> <zone> <temperature>
  emodul-cli set-zone <module> <zone> on|off

<module> and <zone> accept names or ids. Credentials come from
EMODUL_USERNAME and EMODUL_PASSWORD (a .env file is honored).`)
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

func formatTemp(value *float64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatFloat(*value, 'f', 1, 64)
}

func formatPercent(value *float64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatFloat(*value, 'f', 0, 64) + "%"
}
