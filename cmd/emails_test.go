package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/turnout-prep/pkg/anthropic"
	"github.com/sells-group/turnout-prep/pkg/anthropic/mocks"
)

func TestRunEmails(t *testing.T) {
	useConfig(t)
	dir := t.TempDir()
	opts := emailsOptions{
		Customers: writeFile(t, dir, "customers.csv", "customer_id,segmentation\n1,loyal\n2,lost\n"),
		Prompts:   writeFile(t, dir, "prompts.yaml", "loyal: Thank them for their loyalty.\n"),
		Output:    filepath.Join(dir, "emails.csv"),
	}

	client := mocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "Thank you!"}},
	}, nil).Once()

	require.NoError(t, runEmails(context.Background(), client, opts))

	data, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, "customer_id,segmentation,email\n1,loyal,Thank you!\n2,lost,ERROR\n", string(data))
}
