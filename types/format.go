package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// PromptInput is everything an LLM-backed collaborator needs to see about a turn.
type PromptInput struct {
	Text          string
	RecordKind    RecordKind
	CurrentSlots  SlotSet
	MissingFields []FieldInfo
	SlotSchema    string
	History       []Turn
}

func formatMissingFieldsSection(fields []FieldInfo) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Missing required fields:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Name", "Description")
	for _, field := range fields {
		_ = table.Append(string(field.ID), field.DisplayName, field.Description)
	}
	_ = table.Render()
	return buf.String()
}

func formatHistorySection(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Recent dialogue:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Speaker", "Text")
	for _, turn := range history {
		_ = table.Append(string(turn.Speaker), strings.ReplaceAll(turn.Text, "\n", " "))
	}
	_ = table.Render()
	return buf.String()
}

// FormatPromptInput renders the turn as the user message of an extraction prompt.
func FormatPromptInput(in *PromptInput) (string, error) {
	stateJSON, err := sonic.Marshal(in.CurrentSlots)
	if err != nil {
		return "", err
	}
	sections := []string{
		fmt.Sprintf("# Current Date: \n %s", time.Now().Format(time.RFC3339)),
		fmt.Sprintf("# Record kind:\n%s", in.RecordKind),
		fmt.Sprintf("# Collected slots JSON:\n```json\n%s\n```", string(stateJSON)),
	}
	if in.SlotSchema != "" {
		sections = append(sections, fmt.Sprintf("# Slot schema JSON:\n```json\n%s\n```", in.SlotSchema))
	}
	if s := formatMissingFieldsSection(in.MissingFields); s != "" {
		sections = append(sections, s)
	}
	if s := formatHistorySection(in.History); s != "" {
		sections = append(sections, s)
	}
	if in.Text != "" {
		sections = append(sections, fmt.Sprintf("# User Answer:\n%s", in.Text))
	}
	return strings.Join(sections, "\n\n"), nil
}
