package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

// Стили статусов. Без TTY lipgloss выводит текст без цвета.
var (
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleSkipped = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleDim     = lipgloss.NewStyle().Faint(true)
	styleHeader  = lipgloss.NewStyle().Bold(true)
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	verbose  bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
// verbose добавляет к отчёту подробности по каждому шагу.
func NewOutput(w, errW io.Writer, jsonMode, verbose bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		verbose:  verbose,
		w:        w,
		errW:     errW,
	}
}

// columnGap — пробелы между колонками таблицы.
const columnGap = 2

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) error {
	if o.jsonMode {
		return o.JSON(jsonData)
	}
	o.Table(headers, rows)
	return nil
}

// Table выводит данные в виде таблицы.
//
// Ширина колонки считается по видимой ширине ячеек (lipgloss.Width):
// ANSI-последовательности стилей не сдвигают колонки.
func (o *Output) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}

	fmt.Fprintln(o.w, tableLine(headers, widths))
	fmt.Fprintln(o.w, tableLine(dashes, widths))
	for _, row := range rows {
		fmt.Fprintln(o.w, tableLine(row, widths))
	}
}

// tableLine склеивает ячейки строки, дополняя каждую до ширины колонки.
// Последняя ячейка не дополняется.
func tableLine(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		b.WriteString(cell)
		if i == len(cells)-1 {
			break
		}
		width := 0
		if i < len(widths) {
			width = widths[i]
		}
		b.WriteString(strings.Repeat(" ", max(width-lipgloss.Width(cell), 0)+columnGap))
	}
	return strings.TrimRight(b.String(), " ")
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	return nil
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// RunReport выводит итог run.
//
// Без verbose печатается только строка статуса. С verbose — таблица
// шагов в порядке регистрации и, для каждого шага, ошибка и outputs.
func (o *Output) RunReport(result *domain.RunResult) error {
	if o.jsonMode {
		return o.JSON(result)
	}

	summary := result.Summary()
	fmt.Fprintf(o.w, "%s %s: %d succeeded, %d failed, %d skipped in %s\n",
		runStatusStyle(result.Status).Render(string(result.Status)),
		result.Chain,
		summary.Succeeded, summary.Failed, summary.Skipped,
		result.Duration().Round(time.Millisecond),
	)

	if result.BuildErrorMessage != "" {
		fmt.Fprintf(o.w, "  %s\n", styleFailed.Render(result.BuildErrorMessage))
	}

	if !o.verbose || len(result.Outcomes) == 0 {
		return nil
	}

	fmt.Fprintln(o.w)
	rows := make([][]string, 0, len(result.StepIDs))
	for _, id := range result.StepIDs {
		out, ok := result.Outcome(id)
		if !ok {
			continue
		}
		rows = append(rows, []string{
			id,
			stepStateStyle(out.State).Render(string(out.State)),
			strconv.Itoa(out.Attempts),
			formatDuration(out),
			formatError(out),
		})
	}
	o.Table([]string{"STEP", "STATE", "ATTEMPTS", "DURATION", "ERROR"}, rows)

	for _, id := range result.StepIDs {
		out, ok := result.Outcome(id)
		if !ok || len(out.Outputs) == 0 {
			continue
		}
		fmt.Fprintf(o.w, "\n%s\n", styleHeader.Render("outputs: "+id))
		data, err := json.MarshalIndent(out.Outputs, "  ", "  ")
		if err != nil {
			fmt.Fprintf(o.w, "  %s\n", styleDim.Render(err.Error()))
			continue
		}
		fmt.Fprintf(o.w, "  %s\n", data)
	}
	return nil
}

// PlanLevel — уровень графа для вывода plan.
type PlanLevel struct {
	Level int        `json:"level"`
	Steps []PlanStep `json:"steps"`
}

// PlanStep — шаг в выводе plan.
type PlanStep struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// Plan выводит уровни графа: шаги одного уровня могут выполняться параллельно.
func (o *Output) Plan(levels []PlanLevel) error {
	var rows [][]string
	for _, lvl := range levels {
		for _, s := range lvl.Steps {
			rows = append(rows, []string{
				strconv.Itoa(lvl.Level),
				s.ID,
				s.Type,
				strings.Join(s.DependsOn, ","),
			})
		}
	}
	return o.Print([]string{"LEVEL", "STEP", "TYPE", "DEPENDS_ON"}, rows, levels)
}

// planLevels переводит уровни графа в PlanLevel.
func planLevels(g *engine.Graph, types map[string]string) []PlanLevel {
	levels := g.Levels()
	out := make([]PlanLevel, 0, len(levels))
	for i, lvl := range levels {
		pl := PlanLevel{Level: i, Steps: make([]PlanStep, 0, len(lvl))}
		for _, n := range lvl {
			pl.Steps = append(pl.Steps, PlanStep{
				ID:        n.ID(),
				Type:      types[n.ID()],
				DependsOn: n.Step.DependsOn,
			})
		}
		out = append(out, pl)
	}
	return out
}

func runStatusStyle(s domain.RunStatus) lipgloss.Style {
	switch s {
	case domain.RunStatusSuccess:
		return styleOK
	case domain.RunStatusPartialFailure:
		return styleSkipped
	default:
		return styleFailed
	}
}

func stepStateStyle(s domain.StepState) lipgloss.Style {
	switch s {
	case domain.StepStateSucceeded:
		return styleOK
	case domain.StepStateFailed:
		return styleFailed
	default:
		return styleSkipped
	}
}

func formatDuration(o domain.Outcome) string {
	if !o.Attempted() {
		return "-"
	}
	return o.Duration().Round(time.Millisecond).String()
}

func formatError(o domain.Outcome) string {
	if o.Error == nil {
		return ""
	}
	return o.Error.Error()
}
