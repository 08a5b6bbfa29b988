package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultBuiltins returns the C library functions a program may call
// without defining them.
func DefaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		"putchar": builtinPutchar,
		"puts":    builtinPuts,
		"printf":  builtinPrintf,
		"exit":    builtinExit,
	}
}

func builtinPutchar(m *Machine) (int32, error) {
	c, err := m.Arg(0)
	if err != nil {
		return 0, err
	}
	if _, err := m.outputSink().Write([]byte{byte(c)}); err != nil {
		return -1, nil
	}
	return int32(byte(c)), nil
}

func builtinPuts(m *Machine) (int32, error) {
	p, err := m.Arg(0)
	if err != nil {
		return 0, err
	}
	s, err := m.CString(p)
	if err != nil {
		return 0, err
	}
	if _, err := fmt.Fprintln(m.outputSink(), s); err != nil {
		return -1, nil
	}
	return 0, nil
}

// builtinPrintf supports the conversions %d %i %u %x %c %s and %%,
// without flags or widths.
func builtinPrintf(m *Machine) (int32, error) {
	p, err := m.Arg(0)
	if err != nil {
		return 0, err
	}
	format, err := m.CString(p)
	if err != nil {
		return 0, err
	}

	var sb strings.Builder
	next := 1
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i == len(format) {
			return 0, errors.New("printf: format ends with %")
		}
		if format[i] == '%' {
			sb.WriteByte('%')
			continue
		}
		v, err := m.Arg(next)
		if err != nil {
			return 0, err
		}
		next++
		switch format[i] {
		case 'd', 'i':
			sb.WriteString(strconv.Itoa(int(int32(v))))
		case 'u':
			sb.WriteString(strconv.FormatUint(uint64(v), 10))
		case 'x':
			sb.WriteString(strconv.FormatUint(uint64(v), 16))
		case 'c':
			sb.WriteByte(byte(v))
		case 's':
			s, err := m.CString(v)
			if err != nil {
				return 0, err
			}
			sb.WriteString(s)
		default:
			return 0, errors.Errorf("printf: unsupported conversion %%%c", format[i])
		}
	}
	n, err := m.outputSink().Write([]byte(sb.String()))
	if err != nil {
		return -1, nil
	}
	return int32(n), nil
}

// builtinExit halts the machine with its argument as the result.
func builtinExit(m *Machine) (int32, error) {
	code, err := m.Arg(0)
	if err != nil {
		return 0, err
	}
	m.Halted = true
	return int32(code), nil
}
