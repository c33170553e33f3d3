package prompts

// ============================================================================
// Extraction Prompts
// ============================================================================

// ExtractionSystemPrompt defines the role for content extraction.
const ExtractionSystemPrompt = `You are an educational content analyst. Given source material (a document's text or a topic description), extract the core educational content.

Produce a structured summary with clearly labelled sections:
- Topic: the main topic in one line
- Key Concepts: concepts and definitions the lesson must cover
- Formulas: important formulas or relationships, if any
- Visual Suggestions: elements worth animating

Keep the summary focused and factual. Do not invent material that is not supported by the input.`

// ExtractionDocumentPrompt frames an extracted document for analysis.
const ExtractionDocumentPrompt = `Analyse the following document content and extract the core educational content:`

// ExtractionConceptPrompt frames a free-text topic for analysis.
const ExtractionConceptPrompt = `Research and explain the following topic, then extract the core educational content:`

// ExtractionFocusPrompt introduces supplementary focus context when both a
// document and a concept were supplied.
const ExtractionFocusPrompt = `Focus in particular on explaining this concept:`

// ============================================================================
// Planning Prompts
// ============================================================================

// PlanningSystemPrompt defines the role for lesson planning.
const PlanningSystemPrompt = `You are a lesson planner for short animated educational videos (1-3 minutes), in an intuitive and minimalistic style inspired by 3Blue1Brown.

Using the extracted content summary, structure the lesson into 3-6 scenes. For EACH scene provide:
1. Scene Number & Title
2. Narrator Script — the exact words the narrator will say
3. Visual Description — a precise description of the animation to show (shapes, transformations, text, equations, colours)
4. Duration — approximate seconds for the scene

Make sure concepts build on each other logically.`

// PlanningUserPrompt frames the extracted summary for planning.
const PlanningUserPrompt = `Create the scene-by-scene lesson plan for this content summary:`

// ============================================================================
// Document Description Prompt (vision)
// ============================================================================

// DocumentVisionPrompt asks the vision model to transcribe an uploaded
// document page (PDF or image) into plain text.
const DocumentVisionPrompt = `Transcribe the educational content of this document into plain text. Include all headings, body text, formulas, and figure captions. Output only the transcription.`
