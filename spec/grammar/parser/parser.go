package parser

import (
	"io"

	verr "github.com/nihei9/tabula/error"
)

type RootNode struct {
	Directives     []*DirectiveNode
	Productions    []*ProductionNode
	LexProductions []*ProductionNode
}

type ProductionNode struct {
	Directives []*DirectiveNode
	LHS        string
	RHS        []*AlternativeNode
	Pos        Position
}

func (n *ProductionNode) isLexical() bool {
	if len(n.RHS) != 1 || len(n.RHS[0].Elements) != 1 {
		return false
	}
	return n.RHS[0].Elements[0].Pattern != ""
}

type AlternativeNode struct {
	Elements []*ElementNode
	Pos      Position
}

// ElementNode is a symbol in an alternative. Pattern is set for the body of a lexical
// production; Literally tells a string literal from a regular expression.
type ElementNode struct {
	ID        string
	Pattern   string
	Literally bool
	Pos       Position
}

type DirectiveNode struct {
	Name       string
	Parameters []*ParameterNode
	Pos        Position
}

type ParameterNode struct {
	ID     string
	String string
	Pos    Position
}

func raiseSyntaxError(pos Position, synErr *SyntaxError) {
	panic(&verr.SpecError{
		Cause: synErr,
		Row:   pos.Row,
		Col:   pos.Col,
	})
}

func Parse(src io.Reader) (*RootNode, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}

	return p.parse()
}

type parser struct {
	lex       *lexer
	peekedTok *token
	lastTok   *token
	errs      verr.SpecErrors
}

func newParser(src io.Reader) (*parser, error) {
	lex, err := newLexer(src)
	if err != nil {
		return nil, err
	}
	return &parser{
		lex: lex,
	}, nil
}

func (p *parser) parse() (*RootNode, error) {
	root := p.parseRoot()
	if len(p.errs) > 0 {
		return nil, p.errs
	}

	return root, nil
}

func (p *parser) parseRoot() *RootNode {
	root := &RootNode{}
	for {
		dir, prod, ok := p.parseTopLevelElement()
		if !ok {
			break
		}
		if dir != nil {
			root.Directives = append(root.Directives, dir)
			continue
		}
		if prod.isLexical() {
			root.LexProductions = append(root.LexProductions, prod)
		} else {
			root.Productions = append(root.Productions, prod)
		}
	}
	if len(p.errs) == 0 && len(root.Productions) == 0 {
		p.errs = append(p.errs, &verr.SpecError{
			Cause: synErrNoProduction,
		})
	}
	return root
}

// parseTopLevelElement parses one top-level directive or one production. A syntax error is
// recorded and the parser skips to the next semicolon; a lexical error stops parsing.
func (p *parser) parseTopLevelElement() (dir *DirectiveNode, prod *ProductionNode, ok bool) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}

		dir = nil
		prod = nil
		switch e := err.(type) {
		case *verr.SpecError:
			p.errs = append(p.errs, e)
			ok = p.skipOverSemicolon()
		case *lexError:
			p.errs = append(p.errs, &verr.SpecError{
				Cause: e.cause,
				Row:   e.pos.Row,
				Col:   e.pos.Col,
			})
			ok = false
		case error:
			p.errs = append(p.errs, &verr.SpecError{
				Cause: e,
			})
			ok = false
		default:
			panic(err)
		}
	}()

	if p.consume(tokenKindEOF) {
		return nil, nil, false
	}

	if p.consume(tokenKindDirectiveMarker) {
		dir := p.parseDirectiveBody()
		if !p.consume(tokenKindSemicolon) {
			raiseSyntaxError(p.peek().pos, synErrTopLevelDirNoSemicolon)
		}
		return dir, nil, true
	}

	return nil, p.parseProduction(), true
}

func (p *parser) parseProduction() *ProductionNode {
	if !p.consume(tokenKindID) {
		raiseSyntaxError(p.peek().pos, synErrNoProductionName)
	}
	lhs := p.lastTok.text
	lhsPos := p.lastTok.pos

	var dirs []*DirectiveNode
	for p.consume(tokenKindDirectiveMarker) {
		dirs = append(dirs, p.parseDirectiveBody())
	}

	if !p.consume(tokenKindColon) {
		raiseSyntaxError(p.peek().pos, synErrNoColon)
	}

	alt := p.parseAlternative()
	rhs := []*AlternativeNode{alt}
	for p.consume(tokenKindOr) {
		alt := p.parseAlternative()
		rhs = append(rhs, alt)
	}

	for _, alt := range rhs {
		for _, elem := range alt.Elements {
			if elem.Pattern == "" {
				continue
			}
			if len(rhs) > 1 {
				raiseSyntaxError(elem.Pos, synErrLexProdMultipleAlts)
			}
			if len(alt.Elements) > 1 {
				raiseSyntaxError(elem.Pos, synErrPatternWithOtherSyms)
			}
		}
	}

	if !p.consume(tokenKindSemicolon) {
		raiseSyntaxError(p.peek().pos, synErrNoSemicolon)
	}

	return &ProductionNode{
		Directives: dirs,
		LHS:        lhs,
		RHS:        rhs,
		Pos:        lhsPos,
	}
}

func (p *parser) parseAlternative() *AlternativeNode {
	pos := p.peek().pos
	elems := []*ElementNode{}
	for {
		elem := p.parseElement()
		if elem == nil {
			break
		}
		elems = append(elems, elem)
	}
	if len(elems) > 0 {
		pos = elems[0].Pos
	}
	return &AlternativeNode{
		Elements: elems,
		Pos:      pos,
	}
}

func (p *parser) parseElement() *ElementNode {
	switch {
	case p.consume(tokenKindID):
		return &ElementNode{
			ID:  p.lastTok.text,
			Pos: p.lastTok.pos,
		}
	case p.consume(tokenKindTerminalPattern):
		return &ElementNode{
			Pattern: p.lastTok.text,
			Pos:     p.lastTok.pos,
		}
	case p.consume(tokenKindStringLiteral):
		return &ElementNode{
			Pattern:   p.lastTok.text,
			Literally: true,
			Pos:       p.lastTok.pos,
		}
	}
	return nil
}

// parseDirectiveBody parses a directive following the directive marker #.
func (p *parser) parseDirectiveBody() *DirectiveNode {
	markerPos := p.lastTok.pos
	if !p.consume(tokenKindID) {
		raiseSyntaxError(p.peek().pos, synErrNoDirectiveName)
	}
	name := p.lastTok.text

	var params []*ParameterNode
	for {
		switch {
		case p.consume(tokenKindID):
			params = append(params, &ParameterNode{
				ID:  p.lastTok.text,
				Pos: p.lastTok.pos,
			})
			continue
		case p.consume(tokenKindStringLiteral):
			params = append(params, &ParameterNode{
				String: p.lastTok.text,
				Pos:    p.lastTok.pos,
			})
			continue
		}
		break
	}

	return &DirectiveNode{
		Name:       name,
		Parameters: params,
		Pos:        markerPos,
	}
}

// skipOverSemicolon discards tokens up to and including the next semicolon. It returns false
// when the input ends or a lexical error occurs first.
func (p *parser) skipOverSemicolon() bool {
	if p.peekedTok != nil {
		tok := p.peekedTok
		p.peekedTok = nil
		if tok.kind == tokenKindSemicolon {
			return true
		}
		if tok.kind == tokenKindEOF {
			return false
		}
	}
	for {
		tok, err := p.lex.next()
		if err != nil {
			if lexErr, ok := err.(*lexError); ok {
				p.errs = append(p.errs, &verr.SpecError{
					Cause: lexErr.cause,
					Row:   lexErr.pos.Row,
					Col:   lexErr.pos.Col,
				})
			}
			return false
		}
		switch tok.kind {
		case tokenKindSemicolon:
			return true
		case tokenKindEOF:
			return false
		}
	}
}

func (p *parser) peek() *token {
	if p.peekedTok != nil {
		return p.peekedTok
	}
	tok, err := p.lex.next()
	if err != nil {
		panic(err)
	}
	p.peekedTok = tok
	return tok
}

func (p *parser) consume(expected tokenKind) bool {
	tok := p.peek()
	p.peekedTok = nil
	p.lastTok = tok
	if tok.kind == tokenKindInvalid {
		raiseSyntaxError(tok.pos, synErrInvalidToken)
	}
	if tok.kind == expected {
		return true
	}
	p.peekedTok = tok
	p.lastTok = nil

	return false
}
