package wit

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/wippyai/wasm-build/wit/internal/token"
)

type parser struct {
	tokens []token.Token
	pos    int
}

func (p *parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *parser) peekAt(n int) *token.Token {
	if p.pos+n >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+n]
}

func (p *parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input, expected %v", typ)
	}
	if t.Type != typ {
		return nil, fmt.Errorf("line %d: expected %v, got %q", t.Line, typ, t.Value)
	}
	return t, nil
}

func (p *parser) expectKeyword(kw string) error {
	t, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	if t.Value != kw {
		return fmt.Errorf("line %d: expected %q, got %q", t.Line, kw, t.Value)
	}
	return nil
}

// skipSemi consumes an optional statement terminator.
func (p *parser) skipSemi() {
	for t := p.peek(); t != nil && t.Type == token.Semicolon; t = p.peek() {
		p.next()
	}
}

func (p *parser) atKeyword(kw string) bool {
	t := p.peek()
	return t != nil && t.Type == token.Ident && t.Value == kw
}

// parseDocument parses one WIT source file into pkg, merging with any
// declarations already present.
func (p *parser) parseDocument(pkg *Package) error {
	if p.atKeyword("package") {
		p.next()
		id, err := p.parsePackageName()
		if err != nil {
			return err
		}
		if !pkg.Name.IsZero() && pkg.Name.Base() != id.Base() {
			return fmt.Errorf("conflicting package declarations: %s vs %s", pkg.Name, id)
		}
		pkg.Name = id
		p.skipSemi()
	}

	for p.peek() != nil {
		switch {
		case p.atKeyword("interface"):
			p.next()
			iface, err := p.parseInterface()
			if err != nil {
				return err
			}
			if pkg.Interface(iface.Name) != nil {
				return fmt.Errorf("duplicate interface %q", iface.Name)
			}
			pkg.Interfaces = append(pkg.Interfaces, iface)
		case p.atKeyword("world"), p.atKeyword("default"):
			if p.atKeyword("default") {
				p.next()
			}
			if err := p.expectKeyword("world"); err != nil {
				return err
			}
			world, err := p.parseWorld()
			if err != nil {
				return err
			}
			if pkg.World(world.Name) != nil {
				return fmt.Errorf("duplicate world %q", world.Name)
			}
			pkg.Worlds = append(pkg.Worlds, world)
		default:
			t := p.peek()
			return fmt.Errorf("line %d: unexpected %q at top level", t.Line, t.Value)
		}
		p.skipSemi()
	}
	return nil
}

// parsePackageName parses ns:name with an optional version.
func (p *parser) parsePackageName() (Ident, error) {
	var id Ident
	ns, err := p.expect(token.Ident)
	if err != nil {
		return id, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return id, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return id, err
	}
	id.Namespace = ns.Value
	id.Name = name.Value

	if t := p.peek(); t != nil && t.Type == token.Version {
		p.next()
		v, err := semver.NewVersion(t.Value)
		if err != nil {
			return id, fmt.Errorf("line %d: invalid version %q: %v", t.Line, t.Value, err)
		}
		id.Version = v
	}
	return id, nil
}

func (p *parser) parseInterface() (*Interface, error) {
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	iface := &Interface{Name: name.Value}
	if err := p.parseInterfaceBody(iface); err != nil {
		return nil, fmt.Errorf("interface %q: %w", iface.Name, err)
	}
	return iface, nil
}

func (p *parser) parseInterfaceBody(iface *Interface) error {
	if _, err := p.expect(token.LBrace); err != nil {
		return err
	}

	for {
		p.skipSemi()
		t := p.peek()
		if t == nil {
			return fmt.Errorf("unexpected end of input in interface body")
		}
		if t.Type == token.RBrace {
			p.next()
			return nil
		}

		switch {
		case p.atKeyword("use"):
			p.next()
			use, err := p.parseUse()
			if err != nil {
				return err
			}
			iface.Uses = append(iface.Uses, use)
		case p.atKeyword("type"), p.atKeyword("record"), p.atKeyword("flags"),
			p.atKeyword("enum"), p.atKeyword("variant"), p.atKeyword("resource"):
			td, err := p.parseTypeDef()
			if err != nil {
				return err
			}
			iface.Types = append(iface.Types, td)
		default:
			fn, err := p.parseNamedFunc()
			if err != nil {
				return err
			}
			iface.Funcs = append(iface.Funcs, fn)
		}
	}
}

// parseUse parses the tail of a use statement:
// [ns:pkg[@v]/]iface.{name, ...}
func (p *parser) parseUse() (Use, error) {
	var use Use
	first, err := p.expect(token.Ident)
	if err != nil {
		return use, err
	}
	use.Interface = first.Value

	if t := p.peek(); t != nil && t.Type == token.Colon {
		p.next()
		pkgName, err := p.expect(token.Ident)
		if err != nil {
			return use, err
		}
		use.Package = Ident{Namespace: first.Value, Name: pkgName.Value}
		if t := p.peek(); t != nil && t.Type == token.Version {
			p.next()
			v, err := semver.NewVersion(t.Value)
			if err != nil {
				return use, fmt.Errorf("line %d: invalid version %q: %v", t.Line, t.Value, err)
			}
			use.Package.Version = v
		}
		if _, err := p.expect(token.Slash); err != nil {
			return use, err
		}
		ifaceName, err := p.expect(token.Ident)
		if err != nil {
			return use, err
		}
		use.Interface = ifaceName.Value
	}

	if _, err := p.expect(token.Dot); err != nil {
		return use, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return use, err
	}
	for {
		name, err := p.expect(token.Ident)
		if err != nil {
			return use, err
		}
		use.Names = append(use.Names, name.Value)
		t := p.next()
		if t == nil {
			return use, fmt.Errorf("unexpected end of input in use list")
		}
		if t.Type == token.RBrace {
			break
		}
		if t.Type != token.Comma {
			return use, fmt.Errorf("line %d: expected ',' or '}' in use list, got %q", t.Line, t.Value)
		}
		// Trailing comma
		if t := p.peek(); t != nil && t.Type == token.RBrace {
			p.next()
			break
		}
	}
	return use, nil
}

func (p *parser) parseTypeDef() (*TypeDef, error) {
	kw := p.next()
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	td := &TypeDef{Name: name.Value}

	switch kw.Value {
	case "type":
		td.Kind = TypeAlias
		if _, err := p.expect(token.Equals); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		td.Alias = ty
	case "record":
		td.Kind = TypeRecord
		fields, err := p.parseFieldList(true)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", td.Name, err)
		}
		td.Fields = fields
	case "variant":
		td.Kind = TypeVariant
		if err := p.parseVariantBody(td); err != nil {
			return nil, fmt.Errorf("variant %q: %w", td.Name, err)
		}
	case "flags", "enum":
		if kw.Value == "flags" {
			td.Kind = TypeFlags
		} else {
			td.Kind = TypeEnum
		}
		names, err := p.parseNameList()
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", kw.Value, td.Name, err)
		}
		td.Names = names
	case "resource":
		td.Kind = TypeResource
		if t := p.peek(); t != nil && t.Type == token.LBrace {
			if err := p.parseResourceBody(td); err != nil {
				return nil, fmt.Errorf("resource %q: %w", td.Name, err)
			}
		}
	}
	return td, nil
}

// parseFieldList parses "{ name: type, ... }".
func (p *parser) parseFieldList(typeRequired bool) ([]Param, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var fields []Param
	for {
		t := p.peek()
		if t == nil {
			return nil, fmt.Errorf("unexpected end of input in field list")
		}
		if t.Type == token.RBrace {
			p.next()
			return fields, nil
		}
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, Param{Name: name.Value, Type: ty})
		if t := p.peek(); t != nil && t.Type == token.Comma {
			p.next()
		}
	}
}

func (p *parser) parseNameList() ([]string, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var names []string
	for {
		t := p.peek()
		if t == nil {
			return nil, fmt.Errorf("unexpected end of input in name list")
		}
		if t.Type == token.RBrace {
			p.next()
			return names, nil
		}
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		names = append(names, name.Value)
		if t := p.peek(); t != nil && t.Type == token.Comma {
			p.next()
		}
	}
}

func (p *parser) parseVariantBody(td *TypeDef) error {
	if _, err := p.expect(token.LBrace); err != nil {
		return err
	}
	for {
		t := p.peek()
		if t == nil {
			return fmt.Errorf("unexpected end of input in variant body")
		}
		if t.Type == token.RBrace {
			p.next()
			return nil
		}
		name, err := p.expect(token.Ident)
		if err != nil {
			return err
		}
		c := Param{Name: name.Value}
		if t := p.peek(); t != nil && t.Type == token.LParen {
			p.next()
			ty, err := p.parseType()
			if err != nil {
				return err
			}
			c.Type = ty
			if _, err := p.expect(token.RParen); err != nil {
				return err
			}
		}
		td.Fields = append(td.Fields, c)
		if t := p.peek(); t != nil && t.Type == token.Comma {
			p.next()
		}
	}
}

func (p *parser) parseResourceBody(td *TypeDef) error {
	if _, err := p.expect(token.LBrace); err != nil {
		return err
	}
	for {
		p.skipSemi()
		t := p.peek()
		if t == nil {
			return fmt.Errorf("unexpected end of input in resource body")
		}
		if t.Type == token.RBrace {
			p.next()
			return nil
		}

		if p.atKeyword("constructor") {
			p.next()
			params, err := p.parseParams()
			if err != nil {
				return err
			}
			td.Funcs = append(td.Funcs, &Function{
				Name:   "constructor",
				Kind:   FuncConstructor,
				Params: params,
			})
			continue
		}

		fn, err := p.parseNamedFunc()
		if err != nil {
			return err
		}
		if fn.Kind == FuncFreestanding {
			fn.Kind = FuncMethod
		}
		td.Funcs = append(td.Funcs, fn)
	}
}

// parseNamedFunc parses "name: [static] func(params) [-> type]".
func (p *parser) parseNamedFunc() (*Function, error) {
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	fn := &Function{Name: name.Value}
	if p.atKeyword("static") {
		p.next()
		fn.Kind = FuncStatic
	}
	if err := p.expectKeyword("func"); err != nil {
		return nil, err
	}
	fn.Params, err = p.parseParams()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t != nil && t.Type == token.Arrow {
		p.next()
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fn.Result = &ty
	}
	return fn, nil
}

func (p *parser) parseParams() ([]Param, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []Param
	for {
		t := p.peek()
		if t == nil {
			return nil, fmt.Errorf("unexpected end of input in parameter list")
		}
		if t.Type == token.RParen {
			p.next()
			return params, nil
		}
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Name: name.Value, Type: ty})
		if t := p.peek(); t != nil && t.Type == token.Comma {
			p.next()
		}
	}
}

// parseType parses a type reference, rendering parameterized types to a
// canonical string form ("list<u32>", "result<ok, err>").
func (p *parser) parseType() (Type, error) {
	t, err := p.expect(token.Ident)
	if err != nil {
		return Type{}, err
	}
	name := t.Value

	if nxt := p.peek(); nxt != nil && nxt.Type == token.LAngle {
		p.next()
		var args []string
		for {
			if p.atKeyword("_") {
				p.next()
				args = append(args, "_")
			} else {
				arg, err := p.parseType()
				if err != nil {
					return Type{}, err
				}
				args = append(args, arg.Name)
			}
			nxt := p.next()
			if nxt == nil {
				return Type{}, fmt.Errorf("unexpected end of input in type parameters")
			}
			if nxt.Type == token.RAngle {
				break
			}
			if nxt.Type != token.Comma {
				return Type{}, fmt.Errorf("line %d: expected ',' or '>', got %q", nxt.Line, nxt.Value)
			}
		}
		return Type{Name: name + "<" + strings.Join(args, ", ") + ">"}, nil
	}

	return ParseTypeRef(name), nil
}

func (p *parser) parseWorld() (*World, error) {
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	world := &World{Name: name.Value}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	for {
		p.skipSemi()
		t := p.peek()
		if t == nil {
			return nil, fmt.Errorf("world %q: unexpected end of input", world.Name)
		}
		if t.Type == token.RBrace {
			p.next()
			return world, nil
		}

		switch {
		case p.atKeyword("import"):
			p.next()
			item, err := p.parseWorldItem()
			if err != nil {
				return nil, fmt.Errorf("world %q: %w", world.Name, err)
			}
			world.Imports = append(world.Imports, item)
		case p.atKeyword("export"):
			p.next()
			item, err := p.parseWorldItem()
			if err != nil {
				return nil, fmt.Errorf("world %q: %w", world.Name, err)
			}
			world.Exports = append(world.Exports, item)
		case p.atKeyword("use"):
			p.next()
			use, err := p.parseUse()
			if err != nil {
				return nil, fmt.Errorf("world %q: %w", world.Name, err)
			}
			world.Uses = append(world.Uses, use)
		case p.atKeyword("type"), p.atKeyword("record"), p.atKeyword("flags"),
			p.atKeyword("enum"), p.atKeyword("variant"), p.atKeyword("resource"):
			td, err := p.parseTypeDef()
			if err != nil {
				return nil, fmt.Errorf("world %q: %w", world.Name, err)
			}
			world.Types = append(world.Types, td)
		default:
			return nil, fmt.Errorf("world %q: line %d: unexpected %q", world.Name, t.Line, t.Value)
		}
	}
}

// parseWorldItem parses the tail of an import or export:
//
//	ns:pkg/iface[@v]    foreign interface reference
//	iface               local interface reference
//	name: func(...)     freestanding function
//	name: interface {}  inline interface
func (p *parser) parseWorldItem() (WorldItem, error) {
	first, err := p.expect(token.Ident)
	if err != nil {
		return WorldItem{}, err
	}

	t := p.peek()
	if t == nil || t.Type != token.Colon {
		return WorldItem{Kind: ItemInterfaceRef, Name: first.Value}, nil
	}

	// Foreign reference when the colon is followed by "pkg/"
	if after := p.peekAt(2); after != nil && after.Type == token.Slash {
		p.next() // colon
		pkgName, err := p.expect(token.Ident)
		if err != nil {
			return WorldItem{}, err
		}
		p.next() // slash
		ifaceName, err := p.expect(token.Ident)
		if err != nil {
			return WorldItem{}, err
		}
		item := WorldItem{
			Kind:    ItemInterfaceRef,
			Package: Ident{Namespace: first.Value, Name: pkgName.Value},
			Name:    ifaceName.Value,
		}
		if t := p.peek(); t != nil && t.Type == token.Version {
			p.next()
			v, err := semver.NewVersion(t.Value)
			if err != nil {
				return WorldItem{}, fmt.Errorf("line %d: invalid version %q: %v", t.Line, t.Value, err)
			}
			item.Package.Version = v
		}
		return item, nil
	}

	p.next() // colon
	if p.atKeyword("interface") {
		p.next()
		inline := &Interface{Name: first.Value}
		if err := p.parseInterfaceBody(inline); err != nil {
			return WorldItem{}, err
		}
		return WorldItem{Kind: ItemInlineInterface, Name: first.Value, Inline: inline}, nil
	}

	fn := &Function{Name: first.Value}
	if p.atKeyword("static") {
		p.next()
		fn.Kind = FuncStatic
	}
	if err := p.expectKeyword("func"); err != nil {
		return WorldItem{}, err
	}
	fn.Params, err = p.parseParams()
	if err != nil {
		return WorldItem{}, err
	}
	if t := p.peek(); t != nil && t.Type == token.Arrow {
		p.next()
		ty, err := p.parseType()
		if err != nil {
			return WorldItem{}, err
		}
		fn.Result = &ty
	}
	return WorldItem{Kind: ItemFunc, Name: first.Value, Func: fn}, nil
}
