package machine

// add implements OP_ADD: numeric addition, or string concatenation when
// both operands are strings. Mixed operand kinds are a runtime error.
func (th *Thread) add(a, b Value) (Value, error) {
	if an, ok := a.(Number); ok {
		if bn, ok := b.(Number); ok {
			return an + bn, nil
		}
	}
	if as, ok := a.(*String); ok {
		if bs, ok := b.(*String); ok {
			return th.intern(as.S + bs.S), nil
		}
	}
	return Nil, th.raise("operands must be two numbers or two strings")
}

func (th *Thread) numericBinop(op string, a, b Value) (Number, Number, error) {
	an, aok := a.(Number)
	bn, bok := b.(Number)
	if !aok || !bok {
		return 0, 0, th.raise("operands of '%s' must be numbers", op)
	}
	return an, bn, nil
}

func (th *Thread) subtract(a, b Value) (Value, error) {
	an, bn, err := th.numericBinop("-", a, b)
	if err != nil {
		return Nil, err
	}
	return an - bn, nil
}

func (th *Thread) multiply(a, b Value) (Value, error) {
	an, bn, err := th.numericBinop("*", a, b)
	if err != nil {
		return Nil, err
	}
	return an * bn, nil
}

func (th *Thread) divide(a, b Value) (Value, error) {
	an, bn, err := th.numericBinop("/", a, b)
	if err != nil {
		return Nil, err
	}
	if bn == 0 {
		return Nil, th.raise("division by zero")
	}
	return an / bn, nil
}

func (th *Thread) less(a, b Value) (Value, error) {
	an, bn, err := th.numericBinop("<", a, b)
	if err != nil {
		return Nil, err
	}
	return Bool(an < bn), nil
}

func (th *Thread) greater(a, b Value) (Value, error) {
	an, bn, err := th.numericBinop(">", a, b)
	if err != nil {
		return Nil, err
	}
	return Bool(an > bn), nil
}

func (th *Thread) negate(v Value) (Value, error) {
	n, ok := v.(Number)
	if !ok {
		return Nil, th.raise("operand of unary '-' must be a number")
	}
	return -n, nil
}
