package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/headstone/internal/roles"
	"github.com/starford/headstone/internal/route"
)

// RouteGuideURI is the resource URI of the navigation guide.
const RouteGuideURI = "headstone://route-guide"

// RouteGuide renders the dashboard's addressing rules and every role's
// routable pages as Markdown for tool consumers.
func RouteGuide() string {
	var b strings.Builder
	b.WriteString("# Headstone Route Guide\n\n")
	b.WriteString("Dashboard locations are URL fragments of the form `#/{role}/{page}`.\n\n")
	b.WriteString("## Rules\n\n")
	b.WriteString("1. Leading `#` and a missing leading `/` are tolerated; `admin/memorials` resolves like `#/admin/memorials`.\n")
	b.WriteString("2. An unknown role falls back to the last remembered role, or `" + string(roles.Default) + "` when none is remembered.\n")
	b.WriteString("3. An unknown page falls back to the role's default page.\n")
	fmt.Fprintf(&b, "4. `#%s` is the sign-in screen for any role.\n", route.LoginPath)
	b.WriteString("5. A non-canonical location is rewritten to the canonical path exactly once.\n")

	for _, role := range roles.All() {
		cfg := roles.MustLookup(role)
		fmt.Fprintf(&b, "\n## %s (`%s`)\n\n", cfg.Label, cfg.BasePath)
		fmt.Fprintf(&b, "Default page: `%s`\n\n", cfg.DefaultPage)
		b.WriteString("| Page | Menu label | Path |\n|---|---|---|\n")
		labels := make(map[string]string, len(cfg.Nav))
		for _, item := range cfg.Nav {
			labels[item.ID] = item.Label
		}
		for _, page := range cfg.Pages {
			label := labels[page]
			if label == "" {
				label = "(not in menu)"
			}
			fmt.Fprintf(&b, "| %s | %s | `%s/%s` |\n", page, label, cfg.BasePath, page)
		}
	}
	return b.String()
}
