package promptstore

// DefaultPromptName is the name of the prompt installed on first startup
const DefaultPromptName = "Default Classifier"

// DefaultPromptContent is the built-in classification prompt, created and
// activated lazily when the store is empty
const DefaultPromptContent = `You are a strict email classifier. Classify an email into exactly ONE of two buckets:
1) 'ecommerce' – marketing or campaign emails from stores/brands about sales, product launches, coupons, promotions, newsletters from retailers.
   Include brand newsletters, 'shop now', seasonal sales, product announcements, abandoned cart promos, discount codes.
   Exclude order receipts or shipping notifications if purely transactional.
2) 'political' – messages from campaigns, candidates, PACs, NGOs/activist orgs soliciting donations, petitions, or political actions. Look for cues like ActBlue/WinRed links, 'chip in', 'end-of-quarter', 'paid for by', election/candidate names.
If neither fits, choose 'ecommerce' ONLY if it's clearly a store/brand campaign; otherwise return 'none'.
IMPORTANT: Respond with ONLY valid JSON. No additional text, no explanations outside the JSON.
Format: {"category": "ecommerce|political|none", "reason": "short explanation", "confidence": 0.9}
Be conservative and only pick 'political' if clearly political.`
