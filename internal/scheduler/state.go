package scheduler

import (
	"fmt"
	"slices"

	"github.com/shaiso/SmartChainFlow/internal/domain"
	"github.com/shaiso/SmartChainFlow/internal/engine"
)

// stateTable — состояние одного run.
//
// Единственный писатель — цикл принятия решений планировщика,
// поэтому мьютекс не нужен. Индексы совпадают с engine.Node.Index.
type stateTable struct {
	graph *engine.Graph

	// states — текущее состояние каждого шага.
	states []domain.StepState

	// remaining — сколько зависимостей шага ещё не SUCCEEDED.
	remaining []int

	// outputs — outputs успешных шагов (для контекста зависимых).
	outputs []map[string]any

	// ready — индексы READY шагов, отсортированы по порядку регистрации.
	ready []int

	// outcomes — итоги шагов в порядке завершения.
	outcomes []domain.Outcome

	// open — количество шагов в нетерминальном состоянии.
	open int

	// running — количество RUNNING шагов.
	running int
}

// newStateTable создаёт таблицу, все шаги в PENDING, корни сразу в READY.
func newStateTable(g *engine.Graph) *stateTable {
	n := g.Len()
	t := &stateTable{
		graph:     g,
		states:    make([]domain.StepState, n),
		remaining: make([]int, n),
		outputs:   make([]map[string]any, n),
		outcomes:  make([]domain.Outcome, 0, n),
		open:      n,
	}

	for _, node := range g.Nodes {
		t.states[node.Index] = domain.StepStatePending
		t.remaining[node.Index] = node.InDegree
		if node.InDegree == 0 {
			t.markReady(node.Index)
		}
	}

	return t
}

// markReady переводит шаг PENDING → READY.
func (t *stateTable) markReady(idx int) {
	t.states[idx] = domain.StepStateReady
	pos, _ := slices.BinarySearch(t.ready, idx)
	t.ready = slices.Insert(t.ready, pos, idx)
}

// popReady забирает READY шаг с наименьшим индексом и переводит его в RUNNING.
func (t *stateTable) popReady() *engine.Node {
	idx := t.ready[0]
	t.ready = t.ready[1:]
	t.states[idx] = domain.StepStateRunning
	t.running++
	return t.graph.Nodes[idx]
}

// complete записывает итог запущенного шага.
// Возвращает узлы, ставшие READY.
func (t *stateTable) complete(node *engine.Node, outcome domain.Outcome) []*engine.Node {
	t.running--
	t.finish(node.Index, outcome)

	if outcome.State != domain.StepStateSucceeded {
		return nil
	}

	t.outputs[node.Index] = outcome.Outputs

	var unblocked []*engine.Node
	for _, dep := range node.Dependents {
		t.remaining[dep.Index]--
		if t.remaining[dep.Index] == 0 && t.states[dep.Index] == domain.StepStatePending {
			t.markReady(dep.Index)
			unblocked = append(unblocked, dep)
		}
	}
	return unblocked
}

// skipDependents помечает SKIPPED всех ещё не запущенных потомков шага.
// Обход итеративный (worklist), каждый шаг пропускается не более одного раза.
// Возвращает итоги пропущенных шагов в порядке пропуска.
func (t *stateTable) skipDependents(node *engine.Node) []domain.Outcome {
	var skipped []domain.Outcome

	worklist := []*engine.Node{node}
	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]

		for _, dep := range cur.Dependents {
			if t.states[dep.Index] != domain.StepStatePending {
				continue
			}
			outcome := domain.NewSkippedOutcome(dep.ID(), domain.ErrorKindUpstreamFailed,
				fmt.Sprintf("dependency %s %s", cur.ID(), describe(t.states[cur.Index])))
			t.finish(dep.Index, outcome)
			skipped = append(skipped, outcome)
			worklist = append(worklist, dep)
		}
	}

	return skipped
}

// skipAll помечает SKIPPED все PENDING и READY шаги (fail-fast, отмена).
func (t *stateTable) skipAll(kind domain.ErrorKind, message string) []domain.Outcome {
	var skipped []domain.Outcome

	for _, node := range t.graph.Nodes {
		switch t.states[node.Index] {
		case domain.StepStatePending, domain.StepStateReady:
			outcome := domain.NewSkippedOutcome(node.ID(), kind, message)
			t.finish(node.Index, outcome)
			skipped = append(skipped, outcome)
		}
	}
	t.ready = t.ready[:0]

	return skipped
}

// finish переводит шаг в терминальное состояние и записывает итог.
func (t *stateTable) finish(idx int, outcome domain.Outcome) {
	t.states[idx] = outcome.State
	t.outcomes = append(t.outcomes, outcome)
	t.open--
}

// input собирает вход шага: inputs цепочки и outputs его зависимостей.
func (t *stateTable) input(node *engine.Node, base *engine.Context) *engine.Input {
	ctx := base.WithInputs(nil)
	for _, dep := range node.DependsOn {
		ctx.AddStepResult(dep.ID(), t.outputs[dep.Index], string(domain.StepStateSucceeded))
	}
	return &engine.Input{
		StepID:  node.ID(),
		Context: ctx,
		Attempt: 1,
	}
}

// pending возвращает ID шагов, оставшихся в нетерминальном состоянии.
func (t *stateTable) pending() []string {
	var ids []string
	for _, node := range t.graph.Nodes {
		if !t.states[node.Index].IsTerminal() {
			ids = append(ids, node.ID())
		}
	}
	return ids
}

func describe(s domain.StepState) string {
	if s == domain.StepStateSkipped {
		return "was skipped"
	}
	return "failed"
}
