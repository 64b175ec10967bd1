package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The YAML interchange format is how programs reach the checker without the
// surface parser. Declarations are plain mappings; expressions and statements
// are mappings tagged by one distinguished key, for example:
//
//	classes:
//	  - name: Foo
//	    fields: [{name: i, type: Data}]
//	  - name: Main
//	    methods:
//	      - name: main
//	        self: given
//	        body:
//	          - let: foo
//	            value: {new: Foo, args: [{new: Data}]}
//	          - give: foo.i

type yamlProgram struct {
	Classes []yamlClass `yaml:"classes"`
	Fns     []yamlFn    `yaml:"fns"`
}

type yamlClass struct {
	Name     string       `yaml:"name"`
	Value    bool         `yaml:"value"`
	Generics []string     `yaml:"generics"`
	Where    []string     `yaml:"where"`
	Fields   []yamlField  `yaml:"fields"`
	Methods  []yamlMethod `yaml:"methods"`
}

type yamlField struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Atomic bool   `yaml:"atomic"`
}

type yamlMethod struct {
	Name     string      `yaml:"name"`
	Generics []string    `yaml:"generics"`
	Self     string      `yaml:"self"`
	Inputs   []yamlField `yaml:"inputs"`
	Output   string      `yaml:"output"`
	Where    []string    `yaml:"where"`
	Body     yaml.Node   `yaml:"body"`
}

type yamlFn struct {
	Name     string      `yaml:"name"`
	Generics []string    `yaml:"generics"`
	Inputs   []yamlField `yaml:"inputs"`
	Output   string      `yaml:"output"`
	Where    []string    `yaml:"where"`
	Body     yaml.Node   `yaml:"body"`
}

// LoadProgram decodes a program from the YAML interchange format.
func LoadProgram(data []byte) (*Program, error) {
	var yp yamlProgram
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return nil, err
	}
	prog := &Program{}
	for _, yc := range yp.Classes {
		c, err := yc.decode()
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", yc.Name, err)
		}
		prog.Decls = append(prog.Decls, c)
	}
	for _, yf := range yp.Fns {
		f, err := yf.decode()
		if err != nil {
			return nil, fmt.Errorf("fn %s: %w", yf.Name, err)
		}
		prog.Decls = append(prog.Decls, f)
	}
	return prog, nil
}

// MustLoadProgram is LoadProgram for fixtures known to be valid.
func MustLoadProgram(src string) *Program {
	prog, err := LoadProgram([]byte(src))
	if err != nil {
		panic(err)
	}
	return prog
}

func (yc yamlClass) decode() (*ClassDecl, error) {
	if yc.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	binder, err := decodeBinder(yc.Generics)
	if err != nil {
		return nil, err
	}
	scope := ScopeOf(binder)
	where, err := decodeWhere(yc.Where, scope)
	if err != nil {
		return nil, err
	}
	c := &ClassDecl{Name: yc.Name, Value: yc.Value, Binder: binder, Where: where}
	for _, yf := range yc.Fields {
		ty, err := ParseTy(yf.Type, scope)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", yf.Name, err)
		}
		c.Fields = append(c.Fields, FieldDecl{Name: yf.Name, Ty: ty, Atomic: yf.Atomic})
	}
	for _, ym := range yc.Methods {
		m, err := ym.decode(binder)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", ym.Name, err)
		}
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}

func (ym yamlMethod) decode(classBinder []BinderVar) (*MethodDecl, error) {
	binder, err := decodeBinder(ym.Generics)
	if err != nil {
		return nil, err
	}
	scope := ScopeOf(classBinder, binder)
	m := &MethodDecl{Name: ym.Name, Binder: binder}
	self := ym.Self
	if self == "" {
		self = "given"
	}
	if m.SelfPerm, err = ParsePerm(self, scope); err != nil {
		return nil, fmt.Errorf("self: %w", err)
	}
	if m.Where, err = decodeWhere(ym.Where, scope); err != nil {
		return nil, err
	}
	if m.Inputs, err = decodeInputs(ym.Inputs, scope); err != nil {
		return nil, err
	}
	if ym.Output != "" {
		if m.Output, err = ParseTy(ym.Output, scope); err != nil {
			return nil, fmt.Errorf("output: %w", err)
		}
	}
	if m.Body, err = decodeBody(&ym.Body, scope); err != nil {
		return nil, err
	}
	return m, nil
}

func (yf yamlFn) decode() (*FnDecl, error) {
	binder, err := decodeBinder(yf.Generics)
	if err != nil {
		return nil, err
	}
	scope := ScopeOf(binder)
	f := &FnDecl{Name: yf.Name, Binder: binder}
	if f.Where, err = decodeWhere(yf.Where, scope); err != nil {
		return nil, err
	}
	if f.Inputs, err = decodeInputs(yf.Inputs, scope); err != nil {
		return nil, err
	}
	if yf.Output != "" {
		if f.Output, err = ParseTy(yf.Output, scope); err != nil {
			return nil, fmt.Errorf("output: %w", err)
		}
	}
	if f.Body, err = decodeBody(&yf.Body, scope); err != nil {
		return nil, err
	}
	return f, nil
}

func decodeBinder(generics []string) ([]BinderVar, error) {
	var binder []BinderVar
	for _, g := range generics {
		kind, name, ok := strings.Cut(strings.TrimSpace(g), " ")
		if !ok {
			return nil, fmt.Errorf("generic %q: expected `type NAME` or `perm NAME`", g)
		}
		switch kind {
		case "type":
			binder = append(binder, BinderVar{Kind: TypeKind, Name: strings.TrimSpace(name)})
		case "perm":
			binder = append(binder, BinderVar{Kind: PermKind, Name: strings.TrimSpace(name)})
		default:
			return nil, fmt.Errorf("generic %q: unknown kind %q", g, kind)
		}
	}
	return binder, nil
}

func decodeWhere(clauses []string, scope Scope) ([]Predicate, error) {
	var preds []Predicate
	for _, w := range clauses {
		p, err := ParsePredicate(w, scope)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func decodeInputs(inputs []yamlField, scope Scope) ([]LocalDecl, error) {
	var locals []LocalDecl
	for _, in := range inputs {
		ty, err := ParseTy(in.Type, scope)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", in.Name, err)
		}
		locals = append(locals, LocalDecl{Name: in.Name, Ty: ty})
	}
	return locals, nil
}

func decodeBody(n *yaml.Node, scope Scope) (*Block, error) {
	switch n.Kind {
	case 0:
		return &Block{}, nil
	case yaml.ScalarNode:
		if n.Value == "trusted" {
			return nil, nil
		}
		return nil, nodeErrorf(n, "body must be a list of statements or `trusted`")
	default:
		return decodeBlock(n, scope)
	}
}

func decodeBlock(n *yaml.Node, scope Scope) (*Block, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, nodeErrorf(n, "expected a list of statements")
	}
	b := &Block{}
	for _, sn := range n.Content {
		s, err := decodeStmt(sn, scope)
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	return b, nil
}

func nodeErrorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

// fields indexes the keys of a mapping node.
func fields(n *yaml.Node) map[string]*yaml.Node {
	m := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		m[n.Content[i].Value] = n.Content[i+1]
	}
	return m
}

func decodeStmt(n *yaml.Node, scope Scope) (Stmt, error) {
	if n.Kind == yaml.ScalarNode && n.Value == "break" {
		return BreakStmt{}, nil
	}
	if n.Kind != yaml.MappingNode {
		e, err := decodeExpr(n, scope)
		if err != nil {
			return nil, err
		}
		return ExprStmt{Expr: e}, nil
	}
	f := fields(n)
	switch {
	case f["let"] != nil:
		value, ok := f["value"]
		if !ok {
			return nil, nodeErrorf(n, "let needs a value")
		}
		init, err := decodeExpr(value, scope)
		if err != nil {
			return nil, err
		}
		s := LetStmt{Name: f["let"].Value, Init: init}
		if tn, ok := f["type"]; ok {
			if s.Ty, err = ParseTy(tn.Value, scope); err != nil {
				return nil, nodeErrorf(tn, "%s", err)
			}
		}
		return s, nil
	case f["assign"] != nil:
		place, err := ParsePlace(f["assign"].Value)
		if err != nil {
			return nil, nodeErrorf(n, "%s", err)
		}
		value, ok := f["value"]
		if !ok {
			return nil, nodeErrorf(n, "assign needs a value")
		}
		e, err := decodeExpr(value, scope)
		if err != nil {
			return nil, err
		}
		return ReassignStmt{Place: place, Expr: e}, nil
	case f["loop"] != nil:
		body, err := decodeBlock(f["loop"], scope)
		if err != nil {
			return nil, err
		}
		return LoopStmt{Body: body}, nil
	case f["break"] != nil:
		return BreakStmt{}, nil
	case f["print"] != nil:
		e, err := decodeExpr(f["print"], scope)
		if err != nil {
			return nil, err
		}
		return PrintStmt{Expr: e}, nil
	case f["expr"] != nil:
		e, err := decodeExpr(f["expr"], scope)
		if err != nil {
			return nil, err
		}
		return ExprStmt{Expr: e}, nil
	}
	e, err := decodeExpr(n, scope)
	if err != nil {
		return nil, err
	}
	return ExprStmt{Expr: e}, nil
}

var accessKeys = map[string]Access{
	"give": Give,
	"ref":  Share,
	"mut":  Lease,
	"drop": Drop,
}

func decodeExpr(n *yaml.Node, scope Scope) (Expr, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return nil, nodeErrorf(n, "expected an integer or an expression mapping, got %q", n.Value)
		}
		return IntegerExpr{Value: v}, nil
	case yaml.SequenceNode:
		b, err := decodeBlock(n, scope)
		if err != nil {
			return nil, err
		}
		return BlockExpr{Block: b}, nil
	case yaml.MappingNode:
	default:
		return nil, nodeErrorf(n, "expected an expression")
	}

	f := fields(n)
	for key, access := range accessKeys {
		if pn, ok := f[key]; ok {
			place, err := ParsePlace(pn.Value)
			if err != nil {
				return nil, nodeErrorf(pn, "%s", err)
			}
			return PlaceExpr{Place: place, Access: access}, nil
		}
	}

	switch {
	case f["add"] != nil:
		operands := f["add"]
		if operands.Kind != yaml.SequenceNode || len(operands.Content) != 2 {
			return nil, nodeErrorf(operands, "add takes exactly two operands")
		}
		l, err := decodeExpr(operands.Content[0], scope)
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(operands.Content[1], scope)
		if err != nil {
			return nil, err
		}
		return AddExpr{Left: l, Right: r}, nil
	case f["new"] != nil:
		ty, err := ParseTy(f["new"].Value, scope)
		if err != nil {
			return nil, nodeErrorf(f["new"], "%s", err)
		}
		named, ok := ty.(NamedTy)
		if !ok {
			return nil, nodeErrorf(f["new"], "new needs a class, got %s", ty)
		}
		args, err := decodeExprs(f["args"], scope)
		if err != nil {
			return nil, err
		}
		// Params stay nil unless written, asking the checker to infer them.
		return NewExpr{Class: named.Name, Params: named.Params, Args: args}, nil
	case f["call"] != nil:
		on, ok := f["on"]
		if !ok {
			return nil, nodeErrorf(n, "call needs a receiver (`on`)")
		}
		recv, err := decodeExpr(on, scope)
		if err != nil {
			return nil, err
		}
		params, err := decodeParams(f["params"], scope)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(f["args"], scope)
		if err != nil {
			return nil, err
		}
		return CallExpr{Receiver: recv, Method: f["call"].Value, Params: params, Args: args}, nil
	case f["fn"] != nil:
		params, err := decodeParams(f["params"], scope)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(f["args"], scope)
		if err != nil {
			return nil, err
		}
		return FnCallExpr{Fn: f["fn"].Value, Params: params, Args: args}, nil
	case f["if"] != nil:
		cond, err := decodeExpr(f["if"], scope)
		if err != nil {
			return nil, err
		}
		if f["then"] == nil {
			return nil, nodeErrorf(n, "if needs a then branch")
		}
		then, err := decodeExpr(f["then"], scope)
		if err != nil {
			return nil, err
		}
		els, err := decodeBranch(f["else"], scope)
		if err != nil {
			return nil, err
		}
		return IfExpr{Cond: cond, Then: then, Else: els}, nil
	case f["block"] != nil:
		b, err := decodeBlock(f["block"], scope)
		if err != nil {
			return nil, err
		}
		return BlockExpr{Block: b}, nil
	}
	return nil, nodeErrorf(n, "unrecognized expression")
}

func decodeBranch(n *yaml.Node, scope Scope) (Expr, error) {
	if n == nil {
		return BlockExpr{Block: &Block{}}, nil
	}
	return decodeExpr(n, scope)
}

func decodeExprs(n *yaml.Node, scope Scope) ([]Expr, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, nodeErrorf(n, "expected a list of expressions")
	}
	var es []Expr
	for _, en := range n.Content {
		e, err := decodeExpr(en, scope)
		if err != nil {
			return nil, err
		}
		es = append(es, e)
	}
	return es, nil
}

func decodeParams(n *yaml.Node, scope Scope) ([]Parameter, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, nodeErrorf(n, "expected a list of parameters")
	}
	params := make([]Parameter, 0, len(n.Content))
	for _, pn := range n.Content {
		p, err := ParseParam(pn.Value, scope)
		if err != nil {
			return nil, nodeErrorf(pn, "%s", err)
		}
		params = append(params, p)
	}
	return params, nil
}
