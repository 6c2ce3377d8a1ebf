package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownType возвращается для сообщения с неизвестным или пустым полем type
var ErrUnknownType = errors.New("unknown message type")

// DecodeError описывает нечитаемое сообщение
type DecodeError struct {
	Type MessageType
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("ошибка разбора конверта: %v", e.Err)
	}
	return fmt.Sprintf("ошибка разбора сообщения %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type envelopeHead struct {
	Type MessageType `json:"type"`
}

// PeekType читает только поле type конверта
func PeekType(data []byte) (MessageType, error) {
	var head envelopeHead
	if err := json.Unmarshal(data, &head); err != nil {
		return "", &DecodeError{Err: err}
	}
	return head.Type, nil
}

// Decode разбирает входящее сообщение в один из вариантов Inbound
func Decode(data []byte) (Inbound, error) {
	msgType, err := PeekType(data)
	if err != nil {
		return nil, err
	}

	switch msgType {
	case TypeJoin:
		return decodeAs[Join](msgType, data)
	case TypeMove:
		return decodeAs[Move](msgType, data)
	case TypeBreakBlock:
		return decodeAs[BreakBlock](msgType, data)
	case TypePlaceBlock:
		return decodeAs[PlaceBlock](msgType, data)
	case TypeAttack:
		return decodeAs[Attack](msgType, data)
	case TypeRespawn:
		return Respawn{}, nil
	case TypeChat:
		return decodeAs[Chat](msgType, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msgType)
	}
}

func decodeAs[T Inbound](msgType MessageType, data []byte) (Inbound, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &DecodeError{Type: msgType, Err: err}
	}
	return msg, nil
}

// Encode сериализует сообщение в плоский JSON-конверт {"type":..., ...поля}
func Encode(msg Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации %s: %w", msg.Type(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("ошибка сериализации %s: ожидался JSON-объект", msg.Type())
	}

	out := make([]byte, 0, len(body)+len(msg.Type())+12)
	out = append(out, `{"type":`...)
	out = strconv.AppendQuote(out, string(msg.Type()))
	if len(body) > 2 {
		out = append(out, ',')
	}
	return append(out, body[1:]...), nil
}
