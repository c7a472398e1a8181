package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf16"
)

// Velocidades humanas simuladas.
const (
	ReadingWordsPerMinute = 250
	TypingCharsPerMinute  = 200

	MaxReadingDelay = 5 * time.Second
	MaxTypingDelay  = 10 * time.Second
)

// CountWords cuenta las secuencias maximas sin espacios. Un texto vacio o
// solo con espacios tiene cero palabras.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountCodeUnits devuelve el largo del texto en unidades UTF-16 (no en grafemas ni en bytes).
func CountCodeUnits(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}

// EstimateReadingDelay modela una lectura de 250 palabras por minuto (240ms por palabra), sin limite.
func EstimateReadingDelay(text string) time.Duration {
	return time.Duration(CountWords(text)) * (time.Minute / ReadingWordsPerMinute)
}

// EstimateTypingDelay modela una escritura de 200 caracteres por minuto (300ms por caracter), sin limite.
func EstimateTypingDelay(text string) time.Duration {
	return time.Duration(CountCodeUnits(text)) * (time.Minute / TypingCharsPerMinute)
}

// ReadingPause es EstimateReadingDelay acotado a [0, 5s].
func ReadingPause(text string) time.Duration {
	return clampDelay(EstimateReadingDelay(text), MaxReadingDelay)
}

// TypingPause es EstimateTypingDelay acotado a [0, 10s].
func TypingPause(text string) time.Duration {
	return clampDelay(EstimateTypingDelay(text), MaxTypingDelay)
}

func clampDelay(d, max time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}

// sleepContext espera d o hasta que ctx se cancele.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
