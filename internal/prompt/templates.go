package prompt

import "github.com/waynewangyuxuan/graphex-aicore/internal/domain"

// Registry resolves (Type, Version) to an immutable PromptTemplate.
// Templates are static after construction; lookups never cascade between
// versions — a miss is PROMPT_TEMPLATE_ERROR, not a fallback.
type Registry struct {
	templates map[domain.PromptType]map[domain.PromptVersion]domain.PromptTemplate
}

// NewRegistry builds a registry from the given templates, keyed by their
// own Type/Version fields.
func NewRegistry(templates ...domain.PromptTemplate) *Registry {
	r := &Registry{templates: make(map[domain.PromptType]map[domain.PromptVersion]domain.PromptTemplate)}
	for _, t := range templates {
		if r.templates[t.Type] == nil {
			r.templates[t.Type] = make(map[domain.PromptVersion]domain.PromptTemplate)
		}
		r.templates[t.Type][t.Version] = t
	}
	return r
}

// Lookup returns the template for (typ, version), or ok=false if absent.
func (r *Registry) Lookup(typ domain.PromptType, version domain.PromptVersion) (domain.PromptTemplate, bool) {
	byVersion, ok := r.templates[typ]
	if !ok {
		return domain.PromptTemplate{}, false
	}
	t, ok := byVersion[version]
	return t, ok
}

// DefaultTemplates returns production-channel templates for each of the
// five closed prompt types, suitable as a starting Registry.
func DefaultTemplates() []domain.PromptTemplate {
	return []domain.PromptTemplate{
		{
			Type:                domain.PromptGraphGeneration,
			Version:             domain.VersionProduction,
			SystemPrompt:        "You are an expert at extracting knowledge graphs from technical documents. Respond with strict JSON only.",
			BodyTemplate:        "Document title: {{documentTitle}}\n\nDocument text:\n{{documentText}}\n\nExtract a knowledge graph with between {{minNodes}} and {{maxNodes}} nodes.{{#if feedback}}\n\nPrevious attempt had issues:\n{{feedback}}{{/if}}",
			RequiredContextKeys: []string{"documentTitle", "documentText"},
			OptionalContextKeys: []string{"minNodes", "maxNodes", "feedback"},
			MinNodes:            7,
			MaxNodes:            15,
		},
		{
			Type:                domain.PromptConnectionExplain,
			Version:             domain.VersionProduction,
			SystemPrompt:        "You are an expert explaining relationships between technical concepts in plain language.",
			BodyTemplate:        "Explain the relationship between \"{{nodeA.title}}\" and \"{{nodeB.title}}\" using the source document as grounding.{{#if feedback}}\n\nPrevious attempt had issues:\n{{feedback}}{{/if}}",
			RequiredContextKeys: []string{"nodeA", "nodeB"},
			OptionalContextKeys: []string{"feedback"},
		},
		{
			Type:                domain.PromptQuizGeneration,
			Version:             domain.VersionProduction,
			SystemPrompt:        "You are an expert quiz writer for technical education. Respond with strict JSON only.",
			BodyTemplate:        "Write {{questionCount}} multiple-choice questions covering: {{topics}}.{{#if feedback}}\n\nPrevious attempt had issues:\n{{feedback}}{{/if}}",
			RequiredContextKeys: []string{"topics"},
			OptionalContextKeys: []string{"questionCount", "feedback"},
		},
		{
			Type:                domain.PromptImageDescription,
			Version:             domain.VersionProduction,
			SystemPrompt:        "You describe diagram images for accessibility and indexing purposes.",
			BodyTemplate:        "Describe the contents of the attached image in the context of: {{documentTitle}}.{{#if feedback}}\n\nPrevious attempt had issues:\n{{feedback}}{{/if}}",
			RequiredContextKeys: []string{"documentTitle"},
			OptionalContextKeys: []string{"feedback"},
		},
		{
			Type:                domain.PromptNodeDeduplication,
			Version:             domain.VersionProduction,
			SystemPrompt:        "You decide whether two knowledge-graph node titles refer to the same concept.",
			BodyTemplate:        "Do \"{{titleA}}\" and \"{{titleB}}\" refer to the same concept? Answer strict JSON {\"same\": true|false}.{{#if feedback}}\n\nPrevious attempt had issues:\n{{feedback}}{{/if}}",
			RequiredContextKeys: []string{"titleA", "titleB"},
			OptionalContextKeys: []string{"feedback"},
		},
	}
}
