// Package gir defines the normalized statement tree produced by lowering C
// function bodies. Expressions are reduced to references (identifiers,
// literals or block-local temporaries) and every side effect is an explicit
// statement.
package gir

// Stmt is the closed set of normalized statements. Fields returns the
// statement's fields in their serialization order; body fields carry a
// *Block value, which is nil when the body is absent.
type Stmt interface {
	Kind() string
	Fields() []Field
	implGirStmt()
}

// Field is one named field of a statement. Value is a string (a reference,
// name or type), a []string (argument and attribute lists) or a *Block.
type Field struct {
	Key   string
	Value any
}

// Body returns the field's block and true when the field is a body field.
func (f Field) Body() (*Block, bool) {
	b, ok := f.Value.(*Block)
	return b, ok
}

// Block is an ordered statement sequence owning its own temporary scope.
// A nil *Block means the body is absent, which is distinct from an empty
// block.
type Block struct {
	Stmts []Stmt
}

// NewBlock returns a present block holding stmts.
func NewBlock(stmts ...Stmt) *Block {
	return &Block{Stmts: stmts}
}

// Append adds statements to the end of the block.
func (b *Block) Append(stmts ...Stmt) {
	b.Stmts = append(b.Stmts, stmts...)
}

// Bodies returns the body fields of s in order.
func Bodies(s Stmt) []Field {
	var out []Field
	for _, f := range s.Fields() {
		if _, ok := f.Body(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Statement kind names.
const (
	KindAssign       = "assign_stmt"
	KindCall         = "call_stmt"
	KindMemRead      = "mem_read"
	KindMemWrite     = "mem_write"
	KindAddrOf       = "addr_of"
	KindArrayRead    = "array_read"
	KindArrayWrite   = "array_write"
	KindFieldRead    = "field_read"
	KindFieldWrite   = "field_write"
	KindTypeCast     = "type_cast_stmt"
	KindFieldAddr    = "field_addr"
	KindNewArray     = "new_array"
	KindNewStruct    = "new_struct"
	KindSwitchType   = "switch_type_stmt"
	KindVariableDecl = "variable_decl"
	KindParamDecl    = "parameter_decl"
	KindMethodDecl   = "method_decl"
	KindIf           = "if_stmt"
	KindWhile        = "while_stmt"
	KindDoWhile      = "dowhile_stmt"
	KindFor          = "for_stmt"
	KindSwitch       = "switch_stmt"
	KindCase         = "case_stmt"
	KindDefault      = "default_stmt"
	KindBreak        = "break_stmt"
	KindContinue     = "continue_stmt"
	KindGoto         = "goto_stmt"
	KindLabel        = "label_stmt"
	KindReturn       = "return_stmt"
	KindTry          = "try_stmt"
)

// AssignStmt is target = operand, target = operator operand, or
// target = operand operator operand2. Operator and Operand2 are omitted
// from Fields when empty.
type AssignStmt struct {
	Target   string
	Operator string
	Operand  string
	Operand2 string
}

// CallStmt calls Name with Args and stores the result in Target.
type CallStmt struct {
	Target string
	Name   string
	Args   []string
}

// MemRead loads *Address into Target.
type MemRead struct {
	Target  string
	Address string
}

// MemWrite stores Source into *Address.
type MemWrite struct {
	Address string
	Source  string
}

// AddrOf stores &Source into Target.
type AddrOf struct {
	Target string
	Source string
}

type ArrayRead struct {
	Target string
	Array  string
	Index  string
}

type ArrayWrite struct {
	Array  string
	Index  string
	Source string
}

// FieldRead loads ReceiverObject.Field; arrow access is recorded as a
// field read through the pointer receiver.
type FieldRead struct {
	Target         string
	ReceiverObject string
	Field          string
}

type FieldWrite struct {
	ReceiverObject string
	Field          string
	Source         string
}

// TypeCast converts Source to DataType.
type TypeCast struct {
	Target   string
	DataType string
	Source   string
}

// FieldAddr stores the offset of Name within DataType into Target.
type FieldAddr struct {
	Target   string
	DataType string
	Name     string
}

// NewArray and NewStruct allocate an anonymous object of DataType, as
// created by a compound literal.
type NewArray struct {
	Target   string
	DataType string
}

type NewStruct struct {
	Target   string
	DataType string
}

// SwitchType selects among Exprs by the type of Condition; TypeList[i]
// names the type of Exprs[i], with "default" for the fallback.
type SwitchType struct {
	Target    string
	Condition string
	TypeList  []string
	ExprList  []string
}

type VariableDecl struct {
	Attrs    []string
	DataType string
	Name     string
}

type ParameterDecl struct {
	Attrs    []string
	DataType string
	Name     string
}

// MethodDecl wraps a lowered function. Parameters holds ParameterDecl
// statements.
type MethodDecl struct {
	Attrs      []string
	DataType   string
	Name       string
	Parameters *Block
	Body       *Block
}

// IfStmt has no else_body field at all when Else is nil.
type IfStmt struct {
	Condition string
	Then      *Block
	Else      *Block
}

type WhileStmt struct {
	Condition string
	Body      *Block
}

// DoWhileStmt evaluates its condition at the end of Body, so the
// condition's statements live inside Body.
type DoWhileStmt struct {
	Condition string
	Body      *Block
}

// ForStmt splits a for loop into four regions. Init is nil when the loop
// has no init clause; CondPrebody and Update are always present.
type ForStmt struct {
	Init        *Block
	CondPrebody *Block
	Condition   string
	Update      *Block
	Body        *Block
}

type SwitchStmt struct {
	Condition string
	Body      *Block
}

// CaseStmt's Body is nil for a label immediately followed by another label.
type CaseStmt struct {
	Condition string
	Body      *Block
}

type DefaultStmt struct {
	Body *Block
}

type BreakStmt struct {
	Target string
}

type ContinueStmt struct {
	Target string
}

type GotoStmt struct {
	Target string
}

type LabelStmt struct {
	Name string
}

// ReturnStmt's Target is empty for a bare return.
type ReturnStmt struct {
	Target string
}

// TryStmt models __try with either an __except handler (Catch, with the
// filter reference in ExceptionFilter) or a __finally clause (Final).
type TryStmt struct {
	Body            *Block
	ExceptionFilter string
	Catch           *Block
	Final           *Block
}

func (s *AssignStmt) Kind() string    { return KindAssign }
func (s *CallStmt) Kind() string      { return KindCall }
func (s *MemRead) Kind() string       { return KindMemRead }
func (s *MemWrite) Kind() string      { return KindMemWrite }
func (s *AddrOf) Kind() string        { return KindAddrOf }
func (s *ArrayRead) Kind() string     { return KindArrayRead }
func (s *ArrayWrite) Kind() string    { return KindArrayWrite }
func (s *FieldRead) Kind() string     { return KindFieldRead }
func (s *FieldWrite) Kind() string    { return KindFieldWrite }
func (s *TypeCast) Kind() string      { return KindTypeCast }
func (s *FieldAddr) Kind() string     { return KindFieldAddr }
func (s *NewArray) Kind() string      { return KindNewArray }
func (s *NewStruct) Kind() string     { return KindNewStruct }
func (s *SwitchType) Kind() string    { return KindSwitchType }
func (s *VariableDecl) Kind() string  { return KindVariableDecl }
func (s *ParameterDecl) Kind() string { return KindParamDecl }
func (s *MethodDecl) Kind() string    { return KindMethodDecl }
func (s *IfStmt) Kind() string        { return KindIf }
func (s *WhileStmt) Kind() string     { return KindWhile }
func (s *DoWhileStmt) Kind() string   { return KindDoWhile }
func (s *ForStmt) Kind() string       { return KindFor }
func (s *SwitchStmt) Kind() string    { return KindSwitch }
func (s *CaseStmt) Kind() string      { return KindCase }
func (s *DefaultStmt) Kind() string   { return KindDefault }
func (s *BreakStmt) Kind() string     { return KindBreak }
func (s *ContinueStmt) Kind() string  { return KindContinue }
func (s *GotoStmt) Kind() string      { return KindGoto }
func (s *LabelStmt) Kind() string     { return KindLabel }
func (s *ReturnStmt) Kind() string    { return KindReturn }
func (s *TryStmt) Kind() string       { return KindTry }

func (s *AssignStmt) Fields() []Field {
	fields := []Field{{"target", s.Target}}
	if s.Operator != "" {
		fields = append(fields, Field{"operator", s.Operator})
	}
	fields = append(fields, Field{"operand", s.Operand})
	if s.Operand2 != "" {
		fields = append(fields, Field{"operand2", s.Operand2})
	}
	return fields
}

func (s *CallStmt) Fields() []Field {
	args := s.Args
	if args == nil {
		args = []string{}
	}
	return []Field{{"target", s.Target}, {"name", s.Name}, {"args", args}}
}

func (s *MemRead) Fields() []Field {
	return []Field{{"target", s.Target}, {"address", s.Address}}
}

func (s *MemWrite) Fields() []Field {
	return []Field{{"address", s.Address}, {"source", s.Source}}
}

func (s *AddrOf) Fields() []Field {
	return []Field{{"target", s.Target}, {"source", s.Source}}
}

func (s *ArrayRead) Fields() []Field {
	return []Field{{"target", s.Target}, {"array", s.Array}, {"index", s.Index}}
}

func (s *ArrayWrite) Fields() []Field {
	return []Field{{"array", s.Array}, {"index", s.Index}, {"source", s.Source}}
}

func (s *FieldRead) Fields() []Field {
	return []Field{{"target", s.Target}, {"receiver_object", s.ReceiverObject}, {"field", s.Field}}
}

func (s *FieldWrite) Fields() []Field {
	return []Field{{"receiver_object", s.ReceiverObject}, {"field", s.Field}, {"source", s.Source}}
}

func (s *TypeCast) Fields() []Field {
	return []Field{{"target", s.Target}, {"data_type", s.DataType}, {"source", s.Source}}
}

func (s *FieldAddr) Fields() []Field {
	return []Field{{"target", s.Target}, {"data_type", s.DataType}, {"name", s.Name}}
}

func (s *NewArray) Fields() []Field {
	return []Field{{"target", s.Target}, {"data_type", s.DataType}}
}

func (s *NewStruct) Fields() []Field {
	return []Field{{"target", s.Target}, {"data_type", s.DataType}}
}

func (s *SwitchType) Fields() []Field {
	types, exprs := s.TypeList, s.ExprList
	if types == nil {
		types = []string{}
	}
	if exprs == nil {
		exprs = []string{}
	}
	return []Field{{"target", s.Target}, {"condition", s.Condition}, {"type_list", types}, {"expr_list", exprs}}
}

func declFields(attrs []string, dataType, name string) []Field {
	var fields []Field
	if len(attrs) > 0 {
		fields = append(fields, Field{"attrs", attrs})
	}
	return append(fields, Field{"data_type", dataType}, Field{"name", name})
}

func (s *VariableDecl) Fields() []Field  { return declFields(s.Attrs, s.DataType, s.Name) }
func (s *ParameterDecl) Fields() []Field { return declFields(s.Attrs, s.DataType, s.Name) }

func (s *MethodDecl) Fields() []Field {
	return append(declFields(s.Attrs, s.DataType, s.Name),
		Field{"parameters", s.Parameters}, Field{"body", s.Body})
}

func (s *IfStmt) Fields() []Field {
	fields := []Field{{"condition", s.Condition}, {"then_body", s.Then}}
	if s.Else != nil {
		fields = append(fields, Field{"else_body", s.Else})
	}
	return fields
}

func (s *WhileStmt) Fields() []Field {
	return []Field{{"condition", s.Condition}, {"body", s.Body}}
}

func (s *DoWhileStmt) Fields() []Field {
	return []Field{{"condition", s.Condition}, {"body", s.Body}}
}

func (s *ForStmt) Fields() []Field {
	return []Field{
		{"init_body", s.Init},
		{"condition_prebody", s.CondPrebody},
		{"condition", s.Condition},
		{"update_body", s.Update},
		{"body", s.Body},
	}
}

func (s *SwitchStmt) Fields() []Field {
	return []Field{{"condition", s.Condition}, {"body", s.Body}}
}

func (s *CaseStmt) Fields() []Field {
	return []Field{{"condition", s.Condition}, {"body", s.Body}}
}

func (s *DefaultStmt) Fields() []Field  { return []Field{{"body", s.Body}} }
func (s *BreakStmt) Fields() []Field    { return []Field{{"target", s.Target}} }
func (s *ContinueStmt) Fields() []Field { return []Field{{"target", s.Target}} }
func (s *GotoStmt) Fields() []Field     { return []Field{{"target", s.Target}} }
func (s *LabelStmt) Fields() []Field    { return []Field{{"name", s.Name}} }
func (s *ReturnStmt) Fields() []Field   { return []Field{{"target", s.Target}} }

func (s *TryStmt) Fields() []Field {
	fields := []Field{{"body", s.Body}}
	if s.ExceptionFilter != "" {
		fields = append(fields, Field{"exception_filter", s.ExceptionFilter})
	}
	return append(fields, Field{"catch_body", s.Catch}, Field{"final_body", s.Final})
}

// Marker methods for interface implementation
func (*AssignStmt) implGirStmt()    {}
func (*CallStmt) implGirStmt()      {}
func (*MemRead) implGirStmt()       {}
func (*MemWrite) implGirStmt()      {}
func (*AddrOf) implGirStmt()        {}
func (*ArrayRead) implGirStmt()     {}
func (*ArrayWrite) implGirStmt()    {}
func (*FieldRead) implGirStmt()     {}
func (*FieldWrite) implGirStmt()    {}
func (*TypeCast) implGirStmt()      {}
func (*FieldAddr) implGirStmt()     {}
func (*NewArray) implGirStmt()      {}
func (*NewStruct) implGirStmt()     {}
func (*SwitchType) implGirStmt()    {}
func (*VariableDecl) implGirStmt()  {}
func (*ParameterDecl) implGirStmt() {}
func (*MethodDecl) implGirStmt()    {}
func (*IfStmt) implGirStmt()        {}
func (*WhileStmt) implGirStmt()     {}
func (*DoWhileStmt) implGirStmt()   {}
func (*ForStmt) implGirStmt()       {}
func (*SwitchStmt) implGirStmt()    {}
func (*CaseStmt) implGirStmt()      {}
func (*DefaultStmt) implGirStmt()   {}
func (*BreakStmt) implGirStmt()     {}
func (*ContinueStmt) implGirStmt()  {}
func (*GotoStmt) implGirStmt()      {}
func (*LabelStmt) implGirStmt()     {}
func (*ReturnStmt) implGirStmt()    {}
func (*TryStmt) implGirStmt()       {}
