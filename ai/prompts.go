package ai

import "strings"

// Render replaces {PLACEHOLDER} keys with values. Templates live in this
// package as constants; keys missing from the map are left in place so a
// forgotten replacement is visible in the outgoing prompt.
func Render(template string, replacements map[string]string) string {
	out := template
	for key, value := range replacements {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}

// JSONOnlyDirective is appended to system instructions whenever JSON mode
// is requested together with tool use, since the platform rejects
// structured-output headers in that combination.
const JSONOnlyDirective = "\n\nCRITICAL: You MUST respond with ONLY a valid JSON object. No conversational text, no 'Okay I will scan...', just raw JSON."

// StrengthenedJSONDirective is the harder variant used for the single retry
// after a malformed response.
const StrengthenedJSONDirective = "\n\nYOUR PREVIOUS RESPONSE WAS NOT VALID JSON. Respond with EXACTLY ONE JSON object and NOTHING else: no prose, no markdown fences, no explanations. The first character of your reply must be '{'."

// ResearcherSystem is the Researcher's standing role instruction.
const ResearcherSystem = "You are a Fact-Based Market Analyst. You only report what you can verify from the page and from live search results. You never invent specs."

// ResearcherDiscoveryPrompt drives the discovery sub-skill: fetch the exact
// product page, extract the visual DNA, find extra reference footage.
const ResearcherDiscoveryPrompt = `DEEP SCAN: {PRODUCT_URL}
VIDEO: {VIDEO_URL}

TASK:
1. Fetch the EXACT product page at this URL and extract core specs.
2. Identify visual attributes (Visual DNA): materials, finishes, primary and secondary colors, logo placement, how the product reacts to light.
3. Find 2 extra UGC videos on YouTube/TikTok for this product.

OUTPUT FORMAT (MANDATORY JSON ONLY):
{
    "productName": "string",
    "description": "string",
    "visualDna": "string (detailed material/color/form description)",
    "features": ["string"],
    "specs": { "key": "value" },
    "referenceVideoUrls": ["string"],
    "images": ["string (absolute image URLs from the product page)"]
}`

// ResearcherSentimentPrompt drives the sentiment sub-skill.
const ResearcherSentimentPrompt = `SEARCH: "{PRODUCT_NAME} reviews reddit"
Find why people DISLIKE this product. What are the specific pain points?

OUTPUT FORMAT (MANDATORY JSON ONLY):
{
    "painPoints": ["string"],
    "reviews": ["string (actual quotes or summaries)"],
    "sentimentScore": 72
}
sentimentScore is an integer 0-100 calculated from live review data.`

// StrategistSystem is the Strategist's standing role instruction.
const StrategistSystem = "You are a Master of Conversion Psychology. Respond ONLY with raw JSON."

// StrategistPrompt maps a dossier onto a positioning strategy.
const StrategistPrompt = `STRATEGY BRIEF:
Product: {PRODUCT_NAME}
Pain Points: {PAIN_POINTS}
Sentiment Score: {SENTIMENT_SCORE}/100

PRIOR FINDINGS (from earlier agents, oldest first):
{PRIOR_FINDINGS}

TASK: Pick the #1 psychological trigger (FOMO, Authority, Solution, Aspiration) and the video format that carries it best (SHOWCASE, UNBOXING, HOW_TO, TROUBLESHOOTING, COMPARISON).

OUTPUT FORMAT (MANDATORY JSON ONLY):
{
    "angle": "string",
    "targetAudience": "string",
    "videoType": "SHOWCASE",
    "caption": "string",
    "hashtags": ["string"],
    "firstComment": "string",
    "bestTime": "string",
    "triggers": ["string"]
}`

// BoardroomProposeSystem casts the model as the Creative Producer for the
// first boardroom turn.
const BoardroomProposeSystem = "You are the Creative Producer in a production boardroom. You pitch bold opening hooks grounded in the product's physical reality. Respond ONLY with raw JSON."

// BoardroomProposePrompt asks for three candidate hooks built from the
// product's visual DNA.
const BoardroomProposePrompt = `VISUAL DNA:
{VISUAL_DNA}

PRIOR FINDINGS (from earlier agents, oldest first):
{PRIOR_FINDINGS}

TASK: Pitch exactly 3 opening hooks for an 8-second vertical video. Each hook must be shootable with this exact product appearance. No hook may contradict the Visual DNA.

OUTPUT FORMAT (MANDATORY JSON ONLY):
{
    "hooks": [
        { "title": "string (short hook name)", "logic": "string (why this stops the scroll)" }
    ]
}`

// BoardroomCritiqueSystem casts the model as the CMO for the second turn.
const BoardroomCritiqueSystem = "You are the CMO. You pick the hook that converts, not the one that entertains. Respond ONLY with raw JSON."

// BoardroomCritiquePrompt asks the CMO to select one proposed hook and
// list edits.
const BoardroomCritiquePrompt = `PROPOSED HOOKS:
{PROPOSALS}

STRATEGY:
Angle: {ANGLE}
Target Audience: {TARGET_AUDIENCE}

TASK: Select exactly ONE of the proposed hook titles (verbatim). Justify the pick against the strategy. List any edits the selected hook needs before production; the list may be empty.

OUTPUT FORMAT (MANDATORY JSON ONLY):
{
    "selectedHook": "string (must equal one proposed title)",
    "strategicLogic": "string",
    "edits": ["string"]
}`

// AssistantSystem is the AssistantDirector's standing role instruction.
const AssistantSystem = "You are a specialized Assistant Director. You plan scenes based on the PHYSICAL REALITY of the product. Respond ONLY with raw JSON."

// AssistantPrompt requests the ten-scene draft. Scene 1 encodes the
// directive's hook, scenes 3-5 each demo a distinct real feature, scene 10
// is branding/outro.
const AssistantPrompt = `PROJECT DATA:
Product: {PRODUCT_NAME}
Features: {FEATURES}
Visual DNA: {VISUAL_DNA}
Video Type: {VIDEO_TYPE}
Angle: {ANGLE}
Target Audience: {TARGET_AUDIENCE}
Executive Directive: open with the hook "{SELECTED_HOOK}". Edits: {EDITS}
Final Vibe: {FINAL_VIBE}

PRIOR FINDINGS (from earlier agents, oldest first):
{PRIOR_FINDINGS}

TASK:
Create exactly 10 distinct, sequential 8-second scene concepts (Boxes). Each scene must be narratively adjacent to the one before it.
CRITICAL: You must use the ACTUAL PRODUCT FEATURES and the Visual DNA verbatim. (If the Visual DNA says "silver finish", DO NOT say "red finish".)

The flow must be logical:
1. Hook (encode "{SELECTED_HOOK}")
2. Problem/Intro
3. Feature Demo (real feature: {FEATURE_1})
4. Feature Demo (real feature: {FEATURE_2})
5. Feature Demo (real feature: {FEATURE_3})
6. Application/Use Case
7. Social Proof/Testimonial (address: {PAIN_POINT})
8. Value Stack
9. CTA
10. Outro/branding

OUTPUT FORMAT (MANDATORY JSON ONLY):
{
    "scenes": [
        "Scene 1: [detailed concept using Visual DNA]"
    ],
    "narrativeLogic": "string (why this order carries the viewer to the CTA)"
}`

// DesignerSystem fuses the graphics and audio specialist roles, following
// the hybrid static-anchor/motion split the video model needs.
const DesignerSystem = `You are a dual-specialist agent: an elite Graphics Designer and an Audio Architect.
For every scene you produce BOTH a photorealistic static anchor prompt (for the image model) and a separate 8-second motion prompt (for the video model). The two are never the same text.
Respond ONLY with raw JSON.`

// DesignerPrompt converts the scene draft into production-ready boxes.
const DesignerPrompt = `SCENE CONCEPTS:
{SCENES}

PRODUCT CONTEXT:
Name: {PRODUCT_NAME}
Visual DNA: {VISUAL_DNA}
Pain Points: {PAIN_POINTS}

STRATEGY: {STRATEGY}

PRIOR FINDINGS (from earlier agents, oldest first):
{PRIOR_FINDINGS}

TASK:
Convert these concepts into a production-ready sequence. For EACH scene:
1. Generate a "Static Anchor" (imagePrompt): ultra-detailed photorealistic product shot. Weave the Visual DNA wording in verbatim.
2. Generate a "Motion Synthesis" (visualPrompt): the 8-second movement arc. Weave Visual DNA tokens in so the product never drifts.
3. Write the audioScript (15-30 words, viral TTS cadence) and the ambientSoundDescription.
4. Assign a type (INTRO, UNBOXING, FEATURE, COMPARISON, PROBLEM_SOLUTION, OUTRO, TESTIMONIAL, AD, HOOK, CTA).
5. Duration must be exactly 8 seconds per box (the OUTRO may be shorter).
6. technicalReasoning: one short paragraph naming the camera, lighting, and SFX choices.

OUTPUT FORMAT (MANDATORY JSON ONLY):
{
    "title": "Creative Title",
    "boxes": [
        {
            "type": "HOOK",
            "imagePrompt": "string (static anchor)",
            "visualPrompt": "string (8-second motion prompt)",
            "audioScript": "string",
            "ambientSoundDescription": "string",
            "duration": 8,
            "lighting": "string",
            "camera": "string",
            "technicalReasoning": "string"
        }
    ]
}`

// ReferenceAnalysisPrompt is step one of the image two-step protocol: force
// the model to describe exactly what the reference images show before any
// generation happens.
const ReferenceAnalysisPrompt = `YOU ARE LOOKING AT PRODUCT REFERENCE IMAGES. DESCRIBE EVERY DETAIL YOU SEE:

1. PRODUCT CATEGORY: what type of product is this?
2. EXACT COLORS: primary, secondary, accent, finish type (glossy, matte, metallic, transparent, textured).
3. SHAPE & FORM: overall shape, proportions, edges.
4. VISIBLE TEXT & LABELS: brand name as written, label placement.
5. PHYSICAL FEATURES: buttons, openings, texture, materials.
6. UNIQUE IDENTIFIERS: what makes this product instantly recognizable?

NOW CREATE AN IMAGE GENERATION PROMPT for this scene: "{SCENE}"
The prompt MUST feature the exact product you described, matching colors, shape, and details precisely.

FORMAT YOUR RESPONSE AS:
VISUAL ANALYSIS: [your observations]

IMAGE GENERATION PROMPT: [complete detailed prompt]`

// ConnectiveNarrativeSystem frames the glue-script writer.
const ConnectiveNarrativeSystem = "You sound like a helpful friend who is genuinely excited about these finds. Engaging, sweet, approachable, premium."

// ConnectiveNarrativePrompt writes the intro/transition/outro glue around
// the per-box scripts, with [PAUSE] markers where they slot in.
const ConnectiveNarrativePrompt = `You are writing a CONNECTIVE NARRATIVE for a {COUNT}-part product video.
Your goal is to provide the "glue" that holds the video together.

SEQUENCE:
{SLOTS}

OUTPUT FORMAT:
Write a single cohesive script that leaves pauses (marked as [PAUSE]) where the per-scene scripts will go. Keep it concise and focus on SEAMLESS FLOW.`

// AnchorFallbackPrompt is the deterministic product-photography prompt used
// when a box reaches anchoring without an image prompt of its own.
const AnchorFallbackPrompt = `Professional product photography of {PRODUCT_NAME}.
{VISUAL_DNA}
Features: {DESCRIPTION}.
High resolution, 8k, photorealistic, studio lighting, neutral background.
The product should be the clear focus, centered, showing key details.
No text, no watermarks.`
