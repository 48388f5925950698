package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/hako/durafmt"
	"github.com/olekukonko/tablewriter"

	"zodiac/models"
)

// CLIHttp is the CLI for HTTP client mode
type CLIHttp struct {
	rl      *readline.Instance
	running bool
	client  *Client
}

// NewCLIHttp creates a new HTTP client CLI instance
func NewCLIHttp(serverURL string) (*CLIHttp, error) {
	client := NewClient(serverURL)

	// Test connectivity
	if err := client.HealthCheck(); err != nil {
		return nil, fmt.Errorf("cannot connect to server: %v", err)
	}

	// Create readline instance; ignore Ctrl+C
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %v", err)
	}

	return &CLIHttp{
		rl:      rl,
		running: true,
		client:  client,
	}, nil
}

// Start runs the CLI loop
func (c *CLIHttp) Start() {
	defer c.rl.Close()
	c.printWelcome()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println("\n⚠ Ctrl+C detected. Please use 'exit' or 'quit' command to exit gracefully.")
				continue
			}
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		c.handleCommand(input)
	}
}

// printWelcome prints initial banner
func (c *CLIHttp) printWelcome() {
	PrintBanner("Zodiac - CLI Mode (HTTP Client)")
	fmt.Printf("\nConnected to: %s\n", c.client.baseURL)
	fmt.Println("Type 'help' for available commands")
	c.showPendingPrompt(false)
}

// handleCommand routes user commands
func (c *CLIHttp) handleCommand(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		c.showHelp()
	case "prefs", "preferences":
		c.handlePrefsCommand(args)
	case "steam":
		c.showSteamID()
	case "paths":
		c.showPaths()
	case "saves":
		c.listSaves()
	case "archives":
		c.listArchives()
	case "archive":
		c.handleArchiveCommand(args)
	case "mod":
		c.handleModCommand(args)
	case "launch":
		c.launchGame()
	case "status", "st", "sessions":
		c.listSessions()
	case "stop":
		c.handleStopCommand(args)
	case "update":
		c.handleUpdateCommand(args)
	case "errors", "logs":
		c.handleErrorsCommand(args)
	case "clear":
		c.clearScreen()
	case "exit", "quit", "q":
		c.handleExit()
	default:
		fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}
}

// showHelp prints available commands
func (c *CLIHttp) showHelp() {
	fmt.Println()
	PrintBanner("Available Commands")
	fmt.Println()

	commands := [][]string{
		{"help, h, ?", "Show this help message"},
		{"", ""},
		{"PREFERENCES:", ""},
		{"prefs show", "Show stored preferences"},
		{"prefs set <key> <value>", "Change a preference"},
		{"steam", "Show the effective Steam ID"},
		{"", ""},
		{"GAME:", ""},
		{"paths", "Show resolved game and documents paths"},
		{"saves", "List save slots"},
		{"archives", "List VBF archives under the game directory"},
		{"archive <path> [filter]", "List entries inside an archive"},
		{"mod check <dir>", "Check a staged mod directory layout"},
		{"mod fix <dir>", "Repair a staged mod directory layout"},
		{"", ""},
		{"SESSIONS:", ""},
		{"launch", "Start the game"},
		{"status", "Show tracked game sessions"},
		{"stop <id>", "Stop a tracked game session"},
		{"", ""},
		{"UPDATES:", ""},
		{"update", "Run an update check"},
		{"update prompt", "Show the pending update prompt"},
		{"update respond <answer>", "Answer: update_now|remind_later|skip_version|cancel"},
		{"update apply", "Download and install the update"},
		{"", ""},
		{"SYSTEM:", ""},
		{"errors [clear]", "Show or clear recent errors"},
		{"clear", "Clear screen"},
		{"exit, quit, q", "Exit the program"},
	}

	for _, cmd := range commands {
		if len(cmd) == 2 && cmd[0] != "" {
			fmt.Printf("  %-28s %s\n", cmd[0], cmd[1])
		} else {
			fmt.Println()
		}
	}
}

// handlePrefsCommand handles preference commands
func (c *CLIHttp) handlePrefsCommand(args []string) {
	if len(args) == 0 || args[0] == "show" {
		c.showPreferences()
		return
	}

	if args[0] == "set" {
		if len(args) < 3 {
			fmt.Println("Usage: prefs set <key> <value>")
			return
		}
		c.setPreference(args[1], strings.Join(args[2:], " "))
		return
	}

	fmt.Printf("Unknown prefs command: %s\n", args[0])
}

func (c *CLIHttp) showPreferences() {
	prefs, err := c.client.GetPreferences()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println()
	fmt.Printf("  %-24s %v\n", "auto_steam_id", prefs.AutoSteamID)
	fmt.Printf("  %-24s %s\n", "steam_id_64", valueOrDash(prefs.SteamID64))
	fmt.Printf("  %-24s %v\n", "disable_auto_updates", prefs.DisableAutoUpdates)
	fmt.Printf("  %-24s %s\n", "skip_update_until_date", formatDeferral(prefs.SkipUpdateUntilDate))
	fmt.Printf("  %-24s %s\n", "skip_update_version", prefs.SkipUpdateVersion)
}

func formatDeferral(until int64) string {
	if until == 0 {
		return "-"
	}
	deadline := time.Unix(until, 0)
	if remaining := time.Until(deadline); remaining > 0 {
		return fmt.Sprintf("%d (%s remaining)", until, durafmt.Parse(remaining).LimitFirstN(2))
	}
	return fmt.Sprintf("%d (expired)", until)
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (c *CLIHttp) setPreference(key, value string) {
	var req models.PreferencesUpdate

	switch key {
	case "auto_steam_id", "disable_auto_updates":
		b, err := strconv.ParseBool(value)
		if err != nil {
			fmt.Printf("Error: %s expects true or false\n", key)
			return
		}
		if key == "auto_steam_id" {
			req.AutoSteamID = &b
		} else {
			req.DisableAutoUpdates = &b
		}
	case "steam_id_64":
		req.SteamID64 = &value
	case "skip_update_until_date":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			fmt.Printf("Error: %s expects a unix timestamp\n", key)
			return
		}
		req.SkipUpdateUntilDate = &n
	case "skip_update_version":
		req.SkipUpdateVersion = &value
	default:
		fmt.Printf("Unknown preference: %s\n", key)
		return
	}

	if _, err := c.client.UpdatePreferences(req); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Preference updated.")
}

func (c *CLIHttp) showSteamID() {
	id, err := c.client.GetSteamID()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if id == "" {
		fmt.Println("No Steam ID detected. Set steam_id_64 manually or log into Steam.")
		return
	}
	fmt.Printf("Steam ID: %s\n", id)
}

func (c *CLIHttp) showPaths() {
	paths, err := c.client.GetPaths()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println()
	fmt.Printf("  %-14s %s\n", "Game path:", paths.GamePath)
	fmt.Printf("  %-14s %s\n", "Game binary:", paths.GameBinary)
	fmt.Printf("  %-14s %s\n", "Documents:", paths.DocumentsDir)
	for _, ini := range paths.IniFiles {
		fmt.Printf("  %-14s %s\n", "Ini file:", ini)
	}
	if paths.LoaderReady {
		fmt.Println("  Loader DLLs:   present")
	} else {
		fmt.Printf("  Loader DLLs:   missing (%s)\n", strings.Join(paths.MissingDLLs, ", "))
	}
}

func (c *CLIHttp) listSaves() {
	saves, err := c.client.ListSaves()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if len(saves) == 0 {
		fmt.Println("No save slots found.")
		return
	}

	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Slot", "Name", "Size", "Last Saved")
	for _, save := range saves {
		table.Append([]string{
			strconv.Itoa(save.Slot),
			save.Name,
			save.SizeText,
			time.Unix(save.Modified, 0).Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

func (c *CLIHttp) listArchives() {
	archives, err := c.client.ListArchives()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if len(archives) == 0 {
		fmt.Println("No VBF archives found.")
		return
	}
	for _, path := range archives {
		fmt.Printf("  %s\n", path)
	}
}

func (c *CLIHttp) handleArchiveCommand(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: archive <path> [filter]")
		return
	}

	entries, err := c.client.GetArchiveEntries(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	filter := ""
	if len(args) > 1 {
		filter = strings.ToLower(args[1])
	}

	const maxRows = 50
	shown := 0
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Path", "Size")
	for _, entry := range entries {
		if filter != "" && !strings.Contains(entry.Path, filter) {
			continue
		}
		if shown >= maxRows {
			break
		}
		table.Append([]string{entry.Path, strconv.FormatInt(entry.Size, 10)})
		shown++
	}
	table.Render()
	fmt.Printf("%d of %d entries shown\n", shown, len(entries))
}

func (c *CLIHttp) handleModCommand(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: mod <check|fix> <dir>")
		return
	}

	var result *models.ModCheckRead
	var err error
	switch args[0] {
	case "check":
		result, err = c.client.CheckMod(args[1])
	case "fix":
		result, err = c.client.FixMod(args[1])
	default:
		fmt.Printf("Unknown mod command: %s\n", args[0])
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Layout: %s\n", result.Status)
	for _, action := range result.Actions {
		if action.Kind == "move" {
			fmt.Printf("  move   %s -> %s\n", action.From, action.To)
		} else {
			fmt.Printf("  delete %s\n", action.From)
		}
	}
}

func (c *CLIHttp) launchGame() {
	session, err := c.client.Launch()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Game started (session=%s pid=%d)\n", session.ID, session.PID)
}

func (c *CLIHttp) listSessions() {
	sessions, err := c.client.ListSessions()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if len(sessions) == 0 {
		fmt.Println("No game sessions.")
		return
	}

	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "PID", "Running", "Uptime")
	for _, s := range sessions {
		uptime := durafmt.Parse(time.Since(time.Unix(s.StartedAt, 0))).LimitFirstN(2).String()
		table.Append([]string{s.ID, strconv.Itoa(s.PID), strconv.FormatBool(s.Running), uptime})
	}
	table.Render()
}

func (c *CLIHttp) handleStopCommand(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: stop <session_id>")
		return
	}
	if err := c.client.StopSession(args[0]); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Session stopped.")
}

func (c *CLIHttp) handleUpdateCommand(args []string) {
	if len(args) == 0 || args[0] == "check" {
		c.checkUpdate()
		return
	}

	switch args[0] {
	case "prompt":
		c.showPendingPrompt(true)
	case "respond":
		if len(args) < 2 {
			fmt.Println("Usage: update respond <update_now|remind_later|skip_version|cancel>")
			return
		}
		if err := c.client.RespondUpdatePrompt(args[1]); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println("Response recorded.")
	case "apply":
		c.applyUpdate()
	default:
		fmt.Printf("Unknown update command: %s\n", args[0])
	}
}

func (c *CLIHttp) checkUpdate() {
	result, err := c.client.CheckUpdate()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Decision: %s\n", result.Decision)
	fmt.Printf("Current:  %s\n", result.CurrentVersion)
	if result.LatestVersion != "" {
		fmt.Printf("Latest:   %s\n", result.LatestVersion)
	}
	if result.FetchError != "" {
		fmt.Printf("Fetch error: %s\n", result.FetchError)
	}
	if result.UpdateAvailable {
		fmt.Println("\nAn update is available. Use 'update prompt' to see details.")
	}
}

func (c *CLIHttp) showPendingPrompt(verbose bool) {
	prompt, err := c.client.GetUpdatePrompt()
	if err != nil {
		if verbose {
			fmt.Printf("Error: %v\n", err)
		}
		return
	}

	if !prompt.Pending {
		if verbose {
			fmt.Println("No update prompt is pending.")
		}
		return
	}

	fmt.Println()
	PrintBanner(fmt.Sprintf("Update available: %s", prompt.RemoteVersion))
	if prompt.ReleaseURL != "" {
		fmt.Printf("Release: %s\n", prompt.ReleaseURL)
	}
	if verbose && prompt.ReleaseNotes != "" {
		fmt.Println()
		fmt.Println(prompt.ReleaseNotes)
	}
	fmt.Println("\nAnswer with: update respond <update_now|remind_later|skip_version|cancel>")
}

func (c *CLIHttp) applyUpdate() {
	code, err := c.client.GenerateUpdateCode()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	target, err := c.client.ApplyUpdate(code)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Updating to %s; the server will restart.\n", target)
	c.running = false
}

func (c *CLIHttp) handleErrorsCommand(args []string) {
	if len(args) > 0 && args[0] == "clear" {
		if err := c.client.ClearErrorLogs(); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println("Error logs cleared.")
		return
	}

	logs, err := c.client.GetErrorLogs()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	if len(logs) == 0 {
		fmt.Println("No recent errors.")
		return
	}
	for _, entry := range logs {
		fmt.Printf("  [%v] %v: %v\n", entry["level"], entry["source"], entry["message"])
	}
}

// clearScreen clears the console
func (c *CLIHttp) clearScreen() {
	fmt.Print("\033[H\033[2J")
}

// handleExit exits the CLI
func (c *CLIHttp) handleExit() {
	sessions, err := c.client.ListSessions()
	if err == nil {
		running := 0
		for _, s := range sessions {
			if s.Running {
				running++
			}
		}
		if running > 0 {
			fmt.Printf("\nNote: %d game session(s) keep running; the game is never killed on exit.\n", running)
		}
	}
	fmt.Println("\nGoodbye!")
	c.running = false
}
