package slack_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"nutriagent"
	"nutriagent/slack"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	resp   *http.Response
	err    error
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return m.resp, m.err
}

func TestNewClient(t *testing.T) {
	webhook := "http://slack.com/webhook"
	client := slack.NewClient(webhook, &mockDoer{})
	must.NotNil(t, client, "expected non-nil client")
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr error
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
			},
			wantErr: nil,
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: fmt.Errorf("failed to post message: 400 Bad Request"),
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: fmt.Errorf("network error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: tt.doFunc})
			err := client.PostMessage(context.Background(), "#nutrition", "Hello, world!")
			should.Equal(t, tt.wantErr, err)
		})
	}
}

func TestFormatResult(t *testing.T) {
	result := &nutriagent.PlanResult{
		Status: nutriagent.StatusPartial,
		Plan: &nutriagent.MealPlan{
			Meals: []nutriagent.MealCandidate{
				{Slot: "lunch", Items: []nutriagent.ItemPortion{{FoodID: "brown_rice", Grams: 150}}},
			},
			Totals: nutriagent.Nutrition{Calories: 168, ProteinG: 3.9, CarbsG: 36, FatG: 1.4, Cost: 0.45},
		},
		Adaptations: []nutriagent.AdaptationEvent{
			{TriggerID: "glucose_spike", Confidence: 0.25, Changes: []nutriagent.PlanChange{
				{Op: "scale_macro", Description: "scaled carbs-dominant items in lunch by 0.80"},
			}},
		},
		Notes: []string{"analysis unavailable: sensor backend down"},
	}

	msg := slack.FormatResult("Ana", result)

	should.Contains(t, msg, "*Meal plan for Ana* (partial)")
	should.Contains(t, msg, "brown_rice (150g)")
	should.Contains(t, msg, "168 kcal")
	should.Contains(t, msg, "glucose_spike")
	should.Contains(t, msg, "scaled carbs-dominant items in lunch by 0.80")
	should.Contains(t, msg, "sensor backend down")
}
