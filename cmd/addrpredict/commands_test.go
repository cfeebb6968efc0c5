package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/address-predictor/internal/classifier"
	"github.com/address-predictor/internal/label"
	"github.com/address-predictor/internal/predictor"
)

func TestReadText(t *testing.T) {
	text, err := readText(strings.NewReader("ignored"), []string{"16 colville crescent"})
	require.NoError(t, err)
	assert.Equal(t, "16 colville crescent", text)

	text, err = readText(strings.NewReader("777 Hill Road\nDockland\r\n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "777 Hill Road\nDockland", text)

	text, err = readText(strings.NewReader("Liss"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Liss", text)
}

func TestRunBatch(t *testing.T) {
	allCity := classifier.Func(func(ctx context.Context, codes []int) ([][]float32, error) {
		dists := make([][]float32, len(codes))
		for i := range codes {
			dists[i] = classifier.OneHot(label.City)
		}
		return dists, nil
	})
	p := predictor.New(allCity, predictor.WithWorkers(2))

	in := strings.NewReader("Alton\nZürich\n\nPetersfield\n")
	var out bytes.Buffer

	processed, failed, err := runBatch(context.Background(), p, in, &out, 2)

	require.NoError(t, err)
	assert.Equal(t, 4, processed)
	assert.Equal(t, 1, failed)

	var lines []batchLine
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var line batchLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 4)

	assert.Equal(t, "Alton", lines[0].Address.City)
	assert.Equal(t, "Zürich", lines[1].Text)
	assert.Nil(t, lines[1].Address)
	assert.Contains(t, lines[1].Error, "not in vocabulary")
	assert.True(t, lines[2].Address.IsEmpty())
	assert.Equal(t, "Petersfield", lines[3].Address.City)
}
