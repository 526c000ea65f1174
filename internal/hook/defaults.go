package hook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reflex.app/assistant/common/llm"
	"reflex.app/assistant/internal/asana"
	"reflex.app/assistant/internal/kb"
	"reflex.app/assistant/internal/model"
)

// HandlerDeps carries the collaborators default hook handlers use. Any of
// them may be nil; handlers degrade to canned behavior so a partially
// configured deployment still dispatches.
type HandlerDeps struct {
	LLM          llm.Client
	KB           kb.Retriever
	Asana        asana.Client
	AsanaProject string
}

// RegisterDefaults seeds the registry with the assistant's stock hooks.
// The seeding is declarative data; swapping it out does not affect
// dispatch semantics.
func RegisterDefaults(r *Registry, deps HandlerDeps) {
	r.Register(Hook{
		Name:        "email_auto_response",
		Description: "Automatically respond to common email inquiries",
		Trigger: TriggerConditions{
			Platforms:  []model.Platform{model.PlatformGmail},
			EventTypes: []string{"message"},
			Custom:     Contains("subject", "help"),
		},
		Actions: []string{"analyze_email", "generate_response", "send_reply"},
		Enabled: true,
	}, deps.emailAutoResponse)

	r.Register(Hook{
		Name:        "meeting_scheduler",
		Description: "Schedule meetings based on availability",
		Trigger: TriggerConditions{
			Platforms:  []model.Platform{model.PlatformSlack, model.PlatformGmail},
			EventTypes: []string{"message", "app_mention"},
			Custom:     Contains("content", "schedule meeting"),
		},
		Actions: []string{"check_availability", "propose_times", "send_invites"},
		Enabled: true,
	}, deps.meetingScheduler)

	r.Register(Hook{
		Name:        "task_creator",
		Description: "Create tasks from conversations",
		Trigger: TriggerConditions{
			Platforms:  []model.Platform{model.PlatformSlack, model.PlatformGmail},
			EventTypes: []string{"message", "app_mention"},
			Custom:     Contains("content", "create task"),
		},
		Actions: []string{"extract_task_details", "create_asana_task", "notify_user"},
		Enabled: true,
	}, deps.taskCreator)

	r.Register(Hook{
		Name:        "knowledge_base_update",
		Description: "Update knowledge base from conversations",
		Trigger: TriggerConditions{
			Platforms:  []model.Platform{model.PlatformSlack, model.PlatformGmail},
			EventTypes: []string{"message", "app_mention"},
			Custom:     Contains("content", "important information"),
		},
		Actions: []string{"extract_key_info", "update_kb", "notify_admin"},
		Enabled: true,
	}, deps.knowledgeBaseUpdate)

	r.Register(Hook{
		Name:        "customer_support",
		Description: "Handle customer support inquiries",
		Trigger: TriggerConditions{
			Platforms:  []model.Platform{model.PlatformSlack, model.PlatformGmail},
			EventTypes: []string{"message", "app_mention"},
			Custom:     Contains("content", "support"),
		},
		Actions: []string{"classify_inquiry", "generate_response", "escalate_if_needed"},
		Enabled: true,
	}, deps.customerSupport)
}

func (d HandlerDeps) emailAutoResponse(ctx context.Context, hctx Context) (map[string]any, error) {
	subject := stringify(hctx.EventData["subject"])
	content := stringify(hctx.EventData["content"])

	response := fmt.Sprintf("Thank you for your email about %q. I'll help you with that.", subject)
	if d.LLM != nil {
		resp, err := d.LLM.Generate(ctx, llm.Request{
			Messages: []llm.Message{
				{Role: "system", Content: "You are an executive assistant. Write a professional, helpful reply that addresses the inquiry."},
				{Role: "user", Content: fmt.Sprintf("Subject: %s\n\n%s", subject, content)},
			},
			Temperature: llm.Temp(0.4),
		})
		if err != nil {
			return nil, fmt.Errorf("generating email response: %w", err)
		}
		response = resp.Content
	}

	return map[string]any{
		"action":   "email_auto_response",
		"response": response,
	}, nil
}

func (d HandlerDeps) meetingScheduler(ctx context.Context, hctx Context) (map[string]any, error) {
	// Proposal slots are placeholders until calendar integration lands.
	proposed := []string{"10:00 AM", "2:00 PM", "11:00 AM"}

	response := "I can help you schedule a meeting! Here are some available times:\n" +
		"- Tomorrow at 10:00 AM\n- Tomorrow at 2:00 PM\n- Wednesday at 11:00 AM\n" +
		"Which time works best for you?"

	return map[string]any{
		"action":         "meeting_scheduler",
		"proposed_times": proposed,
		"response":       response,
	}, nil
}

func (d HandlerDeps) taskCreator(ctx context.Context, hctx Context) (map[string]any, error) {
	content := stringify(hctx.EventData["content"])
	title := "New task from conversation"

	result := map[string]any{
		"action": "task_creator",
	}

	if d.Asana != nil && d.AsanaProject != "" {
		task, err := d.Asana.CreateTask(ctx, d.AsanaProject, title, content)
		if err != nil {
			return nil, fmt.Errorf("creating asana task: %w", err)
		}
		result["task_id"] = task.GID
	} else {
		slog.WarnContext(ctx, "asana not configured, task not created")
		result["task_id"] = fmt.Sprintf("local_%d", time.Now().Unix())
	}

	result["response"] = fmt.Sprintf("I've created a task for you: %s", title)
	return result, nil
}

func (d HandlerDeps) knowledgeBaseUpdate(ctx context.Context, hctx Context) (map[string]any, error) {
	if d.KB == nil {
		return nil, fmt.Errorf("knowledge base not configured")
	}

	content := stringify(hctx.EventData["content"])
	metadata := map[string]any{
		"source":    string(hctx.Platform),
		"user_id":   hctx.UserID,
		"timestamp": hctx.Timestamp.UTC().Format(time.RFC3339),
	}

	if err := d.KB.AddDocument(ctx, content, metadata); err != nil {
		return nil, fmt.Errorf("updating knowledge base: %w", err)
	}

	return map[string]any{
		"action":   "knowledge_base_update",
		"success":  true,
		"response": "I've updated the knowledge base with this information.",
	}, nil
}

// supportClassification is the structured output shape for the support
// classifier LLM call.
type supportClassification struct {
	InquiryType string `json:"inquiry_type" jsonschema:"enum=billing,enum=technical,enum=general"`
	Response    string `json:"response"`
}

func (d HandlerDeps) customerSupport(ctx context.Context, hctx Context) (map[string]any, error) {
	content := stringify(hctx.EventData["content"])

	classification := classifyByKeyword(content)
	if d.LLM != nil {
		system := "Classify the customer inquiry as billing, technical, or general, and draft a short first response."
		if d.KB != nil {
			if docs, err := d.KB.Search(ctx, content, 3); err == nil && len(docs) > 0 {
				system += "\n\nRelevant internal notes:\n"
				for _, doc := range docs {
					system += "- " + doc.Content + "\n"
				}
			}
		}

		var out supportClassification
		_, err := d.LLM.GenerateStructured(ctx, llm.Request{
			Messages: []llm.Message{
				{Role: "system", Content: system},
				{Role: "user", Content: content},
			},
			Temperature: llm.Temp(0),
		}, "support_classification", &out)
		if err != nil {
			slog.WarnContext(ctx, "support classification fell back to keywords", "error", err)
		} else {
			classification = out
		}
	}

	return map[string]any{
		"action":            "customer_support",
		"inquiry_type":      classification.InquiryType,
		"response":          classification.Response,
		"escalation_needed": classification.InquiryType == "technical",
	}, nil
}

func classifyByKeyword(content string) supportClassification {
	lowered := strings.ToLower(content)

	switch {
	case strings.Contains(lowered, "billing"):
		return supportClassification{
			InquiryType: "billing",
			Response:    "I can help you with billing questions. Let me check your account...",
		}
	case strings.Contains(lowered, "technical"):
		return supportClassification{
			InquiryType: "technical",
			Response:    "I can help you with technical issues. Let me gather some information...",
		}
	default:
		return supportClassification{
			InquiryType: "general",
			Response:    "I'm here to help! How can I assist you today?",
		}
	}
}
