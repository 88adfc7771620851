package ai

// ExtractGraphPrompt instructs the model to extract entities and relationships
// from a document chunk as a strict JSON object. The single %s placeholder is
// the text to analyze.
const ExtractGraphPrompt = `# Task Context
You are an expert at extracting structured information from text.

# Detailed Task Description & Rules
Analyze the following text and extract:
1. Entities: named things like people, organizations, technologies, concepts, locations, products
2. Relationships: how entities are connected to each other

For each entity, provide:
- name: the entity name as it appears or a normalized form
- type: category (person, organization, technology, concept, location, product, event, other)
- description: brief description based on context (1-2 sentences)

For each relationship, provide:
- source: name of the source entity
- target: name of the target entity
- type: relationship type (uses, related_to, created_by, part_of, located_in, works_for, depends_on, etc.)
- description: brief description of how they are related

# Output Formatting
Return your response as valid JSON with this exact structure:
{
    "entities": [
        {"name": "...", "type": "...", "description": "..."}
    ],
    "relationships": [
        {"source": "...", "target": "...", "type": "...", "description": "..."}
    ]
}

TEXT TO ANALYZE:
---
%s
---

Respond ONLY with the JSON, no other text.`

// ResolveEntitiesPrompt asks the model to identify duplicate entities in a
// batch. The %s placeholder is the formatted entity list.
const ResolveEntitiesPrompt = `# Task Context
You are an expert at entity resolution and deduplication.

# Detailed Task Description & Rules
Given the following list of entities, identify which ones refer to the same
real-world entity and should be merged. Consider:
- Different spellings or abbreviations
- Nicknames or aliases
- Partial vs full names
Be careful: entities with distinct identities should remain separate
(e.g., "Amazon" and "Amazon Web Services" are different business units).

# Background Data
Current entities:
%s

# Output Formatting
Return a JSON object mapping duplicate entity names to the canonical (preferred) name:
{
    "duplicates": {
        "duplicate_name": "canonical_name"
    }
}

If no duplicates found, return: {"duplicates": {}}

Respond ONLY with JSON.`

// QueryEntityExtractionPrompt extracts entity mentions from a user question
// as a comma-separated list. The %s placeholder is the question.
const QueryEntityExtractionPrompt = `Extract the key entities (names, concepts, technologies, organizations)
mentioned in this user question. Return ONLY a comma-separated list of entity names.
If no clear entities, return "NONE".

Question: %s

Entities:`

// ChatSystemPrompt is the base persona for grounded answer generation.
// Context sections (knowledge graph, documents) are appended when available.
const ChatSystemPrompt = `You are an intelligent assistant with access to a knowledge graph.

You have been provided with:
1. Graph Context: entities and their relationships from a knowledge graph
2. Document Context: relevant text passages from document search
3. Conversation History: previous messages in this chat session

When answering questions:
- Use the graph context to understand relationships between concepts
- Use the document context for specific details and facts
- Cite your sources when possible (e.g., "According to the knowledge graph..." or "The documents mention...")
- If you don't have enough information, say so clearly
- Be concise but thorough

Remember: The graph shows HOW things are connected. The documents show WHAT is said about them.`

// CommunitySummaryPrompt asks for a short cluster summary. Placeholders are
// the entity list and the relationship list.
const CommunitySummaryPrompt = `Summarize this cluster of related entities and their relationships
in 2-3 sentences. Focus on the main theme and key insights.

Entities:
%s

Relationships:
%s

Summary:`

// EntityDescriptionPrompt asks for a consolidated entity description from
// context snippets. Placeholders are entity name, entity type, and context.
const EntityDescriptionPrompt = `Based on the following context, write a concise 2-3 sentence description
of "%s" (a %s).

Context:
%s

Description:`
