package searchquery

// Operator применяется внутри одиночного фильтра
type Operator int

const (
	OpContains Operator = iota
	OpEquals
	OpRegex
)

// LogicalOp связывает узлы дерева запроса
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// Node узел дерева разобранного запроса
type Node interface{ node() }

// Filter одиночное условие field:value
type Filter struct {
	Field    string
	Value    string
	Operator Operator
}

// Logical группа условий, связанных AND/OR
type Logical struct {
	Op    LogicalOp
	Nodes []Node
}

// Not отрицание вложенного узла
type Not struct {
	Node Node
}

func (*Filter) node()  {}
func (*Logical) node() {}
func (*Not) node()     {}
