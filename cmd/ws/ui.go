package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"wealthsprint/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Pick a listed id or its number.")
	}
}

func renderDashboard(d game.Dashboard) {
	accent.Printf("\n== %s, year %.2f of %.0f ==\n", d.PlayerID, d.ElapsedYears, game.GameLengthYears)
	if d.Ending != "" {
		renderEnding(d.Ending)
	}

	fmt.Printf("Bank:              %s\n", colorizeMoney(d.Financials.BankBalance))
	fmt.Printf("Net Worth:         %s\n", colorizeMoney(d.NetWorth))
	fmt.Printf("Monthly Cashflow:  %s\n", colorizeMoney(d.Cashflow))
	fmt.Printf("Income:            %s main, %s side\n", formatMoney(d.Financials.MainIncome), formatMoney(d.Financials.SideIncome))
	fmt.Printf("Expenses:          %s (payroll %s)\n", formatMoney(d.Financials.MonthlyExpenses), formatMoney(d.MonthlyPayroll))
	fmt.Printf("Assets/Debts:      %s / %s\n", formatMoney(d.Financials.TotalAssets), formatMoney(d.Financials.TotalLiabilities))
	fmt.Printf("Turn:              %d (%d since last break)\n", d.Turn, d.TurnsWithoutBreak)

	fmt.Println()
	renderStats(d.Stats)

	if len(d.Latches) > 0 {
		fmt.Println()
		danger.Println("Active crises")
		conds := make([]string, 0, len(d.Latches))
		for c := range d.Latches {
			conds = append(conds, string(c))
		}
		sort.Strings(conds)
		for _, c := range conds {
			fmt.Printf("  %-20s %d turns left\n", c, d.Latches[game.Condition(c)].TurnsLeft)
		}
	}
	if d.Pending != nil {
		fmt.Println()
		warn.Printf("Pending scenario: %s (%s)\n", d.Pending.Template.Title, d.Pending.ID)
	}

	fmt.Println()
	accent.Println("Team")
	if len(d.Staff) == 0 {
		printInfo("No staff yet. Try `ws roles` and `ws team hire`.")
	} else {
		fmt.Printf("%-8s %-20s %-18s %-8s %-12s %12s %5s %5s %5s %-10s\n", "ID", "NAME", "ROLE", "LEVEL", "SECTOR", "MONTHLY", "EXP", "LOY", "PERF", "MOOD")
		for _, s := range d.Staff {
			fmt.Printf("%-8s %-20s %-18s %-8s %-12s %12s %5d %5d %5d %-10s\n",
				truncate(s.ID, 8),
				truncate(s.Name, 20),
				truncate(string(s.RoleID), 18),
				s.Level.String(),
				truncate(string(s.Sector), 12),
				formatMoney(s.MonthlyCost),
				s.Experience,
				s.Loyalty,
				s.Performance,
				s.Mood,
			)
		}
	}

	if n := len(d.Journal); n > 0 {
		fmt.Println()
		accent.Println("Recent money")
		for _, tx := range d.Journal[max(0, n-5):] {
			fmt.Printf("  %-10s %14s  balance %s  %s\n", tx.Kind, colorizeMoney(tx.Amount), formatMoney(tx.Balance), tx.Ref)
		}
	}
	fmt.Println()
}

func renderStats(s game.Stats) {
	accent.Println("Stats")
	fmt.Printf("  logic %3d   emotion %3d   karma %3d   stress %3s\n", s.Logic, s.Emotion, s.Karma, colorizeStress(s.Stress))
	fmt.Printf("  reputation %3d   energy %3d   clarity xp %d   loop %d\n", s.Reputation, s.Energy, s.ClarityXP, s.LoopScore)
}

func renderRoles(roles []game.RoleView, sectors []game.Sector) {
	accent.Println("\nRoles")
	fmt.Printf("%-18s %-28s %-11s %12s %22s  %s\n", "ID", "NAME", "DEPT", "BASE", "MONTHLY (ROLLED)", "")
	for _, r := range roles {
		lock := ""
		if r.Unlocked != nil && !*r.Unlocked {
			lock = warn.Sprintf("locked until %d clarity xp", r.UnlockClarityXP)
		}
		fmt.Printf("%-18s %-28s %-11s %12s %22s  %s\n",
			r.ID,
			truncate(r.Name, 28),
			r.Department,
			formatMoney(r.BaseSalary),
			formatMoney(r.MonthlyFrom)+"-"+formatMoney(r.MonthlyTo),
			lock,
		)
	}
	accent.Println("\nSectors")
	for _, s := range sectors {
		fmt.Printf("%-14s %s\n", s.ID, s.Description)
	}
	fmt.Println()
}

func renderScenario(inst game.Instance) {
	fmt.Println()
	if inst.Forced() {
		danger.Printf("!! %s !!\n", strings.ToUpper(strings.ReplaceAll(string(inst.Condition), "_", " ")))
	}
	accent.Printf("%s  [%s, %s]\n", inst.Template.Title, inst.Template.Category, inst.Template.Rarity)
	fmt.Println(inst.Template.Description)
	if inst.Template.Context != "" {
		neutral.Println(inst.Template.Context)
	}
	fmt.Printf("instance %s\n\n", inst.ID)
	for i, o := range inst.Template.Options {
		fmt.Printf("  %d) %-16s %s\n", i+1, o.ID, o.Text)
		if !o.Consequence.IsZero() {
			neutral.Printf("     %s\n", o.Consequence.String())
		}
	}
	fmt.Println()
}

func renderChoice(res game.ChoiceResult) {
	printSuccess("Applied: " + res.Applied.String())
	if res.Cleared != "" {
		printSuccess(fmt.Sprintf("Recovered from %s.", res.Cleared))
	}
	renderStats(res.Snapshot.Stats)
	fmt.Printf("Bank: %s\n", colorizeMoney(res.Snapshot.Financials.BankBalance))
	if res.Forced != nil {
		printWarn("A crisis needs your attention, run `ws next`.")
	}
}

func renderRecord(r game.Record) {
	fmt.Printf("%s  %s (%s, %s)\n", r.ID, r.Name, r.RoleID, r.Department)
	fmt.Printf("  level %-8s salary %s  monthly %s  exp %d  tenure %.2fy\n", r.Level.String(), formatMoney(r.CurrentSalary), formatMoney(r.MonthlyCost()), r.ExperienceScore, r.TenureYears)
	fmt.Printf("  loyalty %d  energy %d  performance %d  mood %s  status %s", r.Loyalty, r.Energy, r.Performance, r.Mood, r.Status)
	if r.Sector != "" {
		fmt.Printf("  sector %s", r.Sector)
	}
	fmt.Println()
}

func renderAdvance(r game.AdvanceReport) {
	printSuccess(fmt.Sprintf("Advanced to year %.2f: %d month(s) settled, %s net.", r.ElapsedYears, r.Months, signedMoney(r.Settled)))
	for _, p := range r.Tick.Promotions {
		printInfo(fmt.Sprintf("  %s promoted %s -> %s on tenure", p.RecordID, p.From.String(), p.To.String()))
	}
	if r.PayrollMissed > 0 {
		printError(fmt.Sprintf("Missed payroll %d time(s).", r.PayrollMissed))
	}
	if r.Ending != "" {
		renderEnding(r.Ending)
	}
}

func renderEnding(e game.Ending) {
	switch e {
	case game.EndingRich:
		success.Println("GAME OVER: you made it rich.")
	case game.EndingBalanced:
		accent.Println("GAME OVER: a balanced life.")
	default:
		danger.Println("GAME OVER: the sprint beat you this time.")
	}
}

func renderEvent(ev game.Event) {
	ts := ev.At.Local().Format("15:04:05")
	switch ev.Kind {
	case game.EventCrisis:
		danger.Printf("%s crisis   %s\n", ts, ev.Detail)
	case game.EventScenario:
		title := ""
		if ev.Scenario != nil {
			title = ev.Scenario.Template.Title
		}
		accent.Printf("%s scenario %s\n", ts, title)
	case game.EventEnded:
		fmt.Printf("%s ", ts)
		renderEnding(ev.Ending)
	default:
		fmt.Printf("%s %-8s %-24s bank %s  stress %d\n", ts, ev.Kind, truncate(ev.Detail, 24), formatMoney(ev.Snapshot.Financials.BankBalance), ev.Snapshot.Stats.Stress)
	}
}

func colorizeMoney(v int64) string {
	text := signedMoney(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizeStress(v int) string {
	text := strconv.Itoa(v)
	switch {
	case v >= 90:
		return danger.Sprint(text)
	case v >= 70:
		return warn.Sprint(text)
	default:
		return text
	}
}

func formatMoney(v int64) string {
	if v < 0 {
		return "-" + comma(-v)
	}
	return comma(v)
}

func signedMoney(v int64) string {
	if v > 0 {
		return "+" + formatMoney(v)
	}
	return formatMoney(v)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
