package engine

// Node — узел графа зависимостей.
type Node struct {
	// Step — шаг из реестра.
	Step *Step

	// Index — позиция шага в порядке регистрации.
	Index int

	// InDegree — количество уникальных зависимостей.
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел (без дубликатов, в порядке объявления).
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла (в порядке регистрации).
	Dependents []*Node
}

// ID возвращает ID шага узла.
func (n *Node) ID() string {
	return n.Step.ID
}

// Graph — проверенный ациклический граф зависимостей шагов.
//
// Граф неизменяем после построения. Изменяемое состояние run
// (состояния шагов, счётчики) хранит планировщик.
type Graph struct {
	// Nodes — узлы в порядке регистрации шагов.
	Nodes []*Node

	byID map[string]*Node
}

// BuildGraph строит граф зависимостей из реестра.
//
// Сначала проверяются ссылки на незарегистрированные шаги (DependencyError),
// затем ищется цикл (CycleError). Обход идёт в порядке регистрации,
// зависимости шага в порядке объявления, поэтому результат детерминирован.
// Повторяющиеся зависимости схлопываются в одно ребро.
func BuildGraph(reg *Registry) (*Graph, error) {
	g := &Graph{
		Nodes: make([]*Node, 0, reg.Len()),
		byID:  make(map[string]*Node, reg.Len()),
	}

	// Первый проход: создаём узлы
	for step := range reg.All() {
		node := &Node{
			Step:  step,
			Index: len(g.Nodes),
		}
		g.Nodes = append(g.Nodes, node)
		g.byID[step.ID] = node
	}

	// Второй проход: связываем узлы по зависимостям
	for _, node := range g.Nodes {
		seen := make(map[string]bool, len(node.Step.DependsOn))
		for _, depID := range node.Step.DependsOn {
			if seen[depID] {
				continue
			}
			seen[depID] = true

			dep, ok := g.byID[depID]
			if !ok {
				return nil, &DependencyError{StepID: node.Step.ID, MissingID: depID}
			}
			node.DependsOn = append(node.DependsOn, dep)
			node.InDegree++
		}
	}

	// Dependents заполняем в порядке регистрации зависимых шагов
	for _, node := range g.Nodes {
		for _, dep := range node.DependsOn {
			dep.Dependents = append(dep.Dependents, node)
		}
	}

	if path := g.findCycle(); path != nil {
		return nil, &CycleError{Path: path}
	}

	return g, nil
}

// Node возвращает узел по ID шага.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Len возвращает количество узлов.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Roots возвращает узлы без зависимостей в порядке регистрации.
func (g *Graph) Roots() []*Node {
	roots := make([]*Node, 0)
	for _, n := range g.Nodes {
		if n.InDegree == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// Levels разбивает граф на уровни (алгоритм Кана).
//
// Уровень 0 — корни, уровень k — шаги, все зависимости которых лежат
// на уровнях < k. Внутри уровня шаги идут в порядке регистрации.
// Используется для вывода плана: шаги одного уровня могут выполняться параллельно.
func (g *Graph) Levels() [][]*Node {
	inDegree := make([]int, len(g.Nodes))
	for _, n := range g.Nodes {
		inDegree[n.Index] = n.InDegree
	}

	levels := make([][]*Node, 0)
	current := g.Roots()

	for len(current) > 0 {
		levels = append(levels, current)

		marked := make([]bool, len(g.Nodes))
		for _, n := range current {
			for _, dependent := range n.Dependents {
				inDegree[dependent.Index]--
				if inDegree[dependent.Index] == 0 {
					marked[dependent.Index] = true
				}
			}
		}

		next := make([]*Node, 0)
		for i, ok := range marked {
			if ok {
				next = append(next, g.Nodes[i])
			}
		}
		current = next
	}

	return levels
}

// TopologicalOrder возвращает узлы в топологическом порядке (уровень за уровнем).
func (g *Graph) TopologicalOrder() []*Node {
	order := make([]*Node, 0, len(g.Nodes))
	for _, level := range g.Levels() {
		order = append(order, level...)
	}
	return order
}

// Цвета узлов при обходе в глубину.
const (
	white = iota // не посещён
	grey         // в текущем пути
	black        // обработан
)

// findCycle ищет цикл обходом в глубину.
// Возвращает путь цикла [A ... A] или nil.
func (g *Graph) findCycle() []string {
	color := make([]int, len(g.Nodes))
	stack := make([]*Node, 0)

	var visit func(n *Node) []string
	visit = func(n *Node) []string {
		color[n.Index] = grey
		stack = append(stack, n)

		for _, dep := range n.DependsOn {
			switch color[dep.Index] {
			case grey:
				return cyclePath(stack, dep)
			case white:
				if path := visit(dep); path != nil {
					return path
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[n.Index] = black
		return nil
	}

	for _, n := range g.Nodes {
		if color[n.Index] != white {
			continue
		}
		if path := visit(n); path != nil {
			return path
		}
	}
	return nil
}

// cyclePath вырезает цикл из стека обхода, начиная с узла from.
func cyclePath(stack []*Node, from *Node) []string {
	start := 0
	for i, n := range stack {
		if n == from {
			start = i
			break
		}
	}

	path := make([]string, 0, len(stack)-start+1)
	for _, n := range stack[start:] {
		path = append(path, n.Step.ID)
	}
	return append(path, from.Step.ID)
}
