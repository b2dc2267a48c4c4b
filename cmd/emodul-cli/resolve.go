package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joshp123/emodul-golang/emodul"
)

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "_")
	return name
}

// resolveModule matches the input against module udids and names.
func resolveModule(ctx context.Context, client *emodul.Client, input string) emodul.Module {
	modules, err := client.ListModules(ctx)
	if err != nil {
		fatal("list modules", err)
	}

	needle := normalizeName(input)
	var names []string
	for _, module := range modules {
		if module.UDID == input || normalizeName(module.Name) == needle {
			return module
		}
		names = append(names, module.Name)
	}
	sort.Strings(names)
	fatal("resolve module", fmt.Errorf("%q not found. Available: %s", input, strings.Join(names, ", ")))
	return emodul.Module{}
}

// resolveZone matches the input against zone ids and names in a snapshot.
func resolveZone(snapshot emodul.Snapshot, input string) emodul.Zone {
	if id, err := strconv.Atoi(input); err == nil {
		if zone, ok := snapshot.Zone(id); ok {
			return zone
		}
	}

	needle := normalizeName(input)
	var names []string
	for _, zone := range snapshot.Zones {
		if normalizeName(zone.Name) == needle {
			return zone
		}
		names = append(names, zone.Name)
	}
	sort.Strings(names)
	fatal("resolve zone", fmt.Errorf("%q not found. Available: %s", input, strings.Join(names, ", ")))
	return emodul.Zone{}
}
