package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Кадр KCP: uint32 длина (little endian) | байт флагов | полезная нагрузка.
const (
	frameHeaderSize = 5

	// FlagZstd: полезная нагрузка сжата zstd
	FlagZstd byte = 0x1

	// CompressThreshold: исходящие кадры от этого размера сжимаются
	CompressThreshold = 1024

	// MaxFrameSize ограничивает длину кадра на проводе и после распаковки
	MaxFrameSize = 64 * 1024
)

// ErrFrameTooLarge возвращается, если заявленная длина кадра больше MaxFrameSize.
var ErrFrameTooLarge = errors.New("network: frame too large")

// FrameCodec упаковывает JSON-сообщения в кадры потока KCP.
// Безопасен для одновременного использования из нескольких горутин.
type FrameCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewFrameCodec создаёт кодек с кодировщиком zstd уровня SpeedDefault.
func NewFrameCodec() (*FrameCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxFrameSize))
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &FrameCodec{encoder: encoder, decoder: decoder}, nil
}

// Encode возвращает кадр с payload; большие сообщения сжимаются.
func (fc *FrameCodec) Encode(payload []byte) []byte {
	var flags byte
	body := payload
	if len(payload) >= CompressThreshold {
		body = fc.encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
		flags |= FlagZstd
	}

	frame := make([]byte, frameHeaderSize+len(body))
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(body)))
	frame[4] = flags
	copy(frame[frameHeaderSize:], body)
	return frame
}

// ReadFrame читает один кадр из r и возвращает распакованную полезную нагрузку.
func (fc *FrameCodec) ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := binary.LittleEndian.Uint32(header[:4])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}

	if header[4]&FlagZstd == 0 {
		return body, nil
	}

	payload, err := fc.decoder.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes decompressed", ErrFrameTooLarge, len(payload))
	}
	return payload, nil
}

// Close освобождает ресурсы zstd.
func (fc *FrameCodec) Close() {
	fc.encoder.Close()
	fc.decoder.Close()
}
