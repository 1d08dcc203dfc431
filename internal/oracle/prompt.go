package oracle

import (
	"fmt"
	"strings"

	"github.com/haulview/freightmatch/internal/model"
)

const systemPreamble = `You are a freight audit assistant for a logistics back office. You compare purchase orders, bills of lading, and carrier invoices, and you answer strictly in JSON matching the schema the user specifies. Return ONLY valid JSON, no markdown formatting.`

const dateLayout = "2006-01-02"

func writeCharges(sb *strings.Builder, indent string, charges []model.Charge) {
	for _, c := range charges {
		fmt.Fprintf(sb, "%s- %s: $%s\n", indent, c.Description, c.Amount.String())
	}
}

func buildRankPOPrompt(inv model.Invoice, candidates []model.PurchaseOrder) string {
	var sb strings.Builder

	sb.WriteString("You are analyzing an invoice to find the best matching Purchase Order.\n\n")
	sb.WriteString("**Invoice:**\n")
	fmt.Fprintf(&sb, "- Invoice Number: %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&sb, "- Carrier: %s\n", inv.CarrierName)
	fmt.Fprintf(&sb, "- Invoice Date: %s\n", inv.InvoiceDate.Format(dateLayout))
	fmt.Fprintf(&sb, "- Referenced PO Number: %s\n", inv.PONumber)
	fmt.Fprintf(&sb, "- Total Amount: $%s\n", inv.TotalAmount.String())
	sb.WriteString("- Charges:\n")
	writeCharges(&sb, "  ", inv.Charges)

	sb.WriteString("\n**Candidate Purchase Orders:**\n")
	for i, po := range candidates {
		fmt.Fprintf(&sb, "\n[%d] PO Number: %s\n", i, po.PONumber)
		fmt.Fprintf(&sb, "- Customer: %s\n", po.CustomerName)
		fmt.Fprintf(&sb, "- Carrier: %s\n", po.CarrierName)
		fmt.Fprintf(&sb, "- Total: $%s\n", po.TotalAmount.String())
		fmt.Fprintf(&sb, "- Origin: %s → Destination: %s\n", po.Origin, po.Destination)
		fmt.Fprintf(&sb, "- Pickup: %s → Delivery: %s\n",
			po.PickupDate.Format(dateLayout), po.DeliveryDate.Format(dateLayout))
		sb.WriteString("- Expected Charges:\n")
		writeCharges(&sb, "  ", po.ExpectedCharges)
	}

	sb.WriteString(`
**Your Task:**
Determine which Purchase Order (if any) best matches this invoice. Consider:
1. Carrier name similarity (very important)
2. Total amount proximity (important)
3. Charge descriptions and amounts (important)
4. Dates (pickup/delivery vs invoice date)
5. PO number similarity (typos, formatting differences like "PO-1234" vs "1234")
6. Origin/destination if mentioned in invoice

**Important Rules:**
- If no PO is a reasonable match, return -1
- Be conservative - only return high confidence if the match is clear
- Consider that PO numbers might have typos or format differences

Return a JSON object: {"best_match_index": number (-1 if none), "confidence": number 0-1, "reasoning": "2-3 sentences"}`)

	return sb.String()
}

func buildRankBOLPrompt(po model.PurchaseOrder, inv model.Invoice, candidates []model.BillOfLading) string {
	var sb strings.Builder

	sb.WriteString("You are analyzing a Purchase Order and Invoice to find the best matching Bill of Lading.\n\n")
	sb.WriteString("**Purchase Order:**\n")
	fmt.Fprintf(&sb, "- PO Number: %s\n", po.PONumber)
	fmt.Fprintf(&sb, "- Customer: %s\n", po.CustomerName)
	fmt.Fprintf(&sb, "- Carrier: %s\n", po.CarrierName)
	fmt.Fprintf(&sb, "- Origin: %s → Destination: %s\n", po.Origin, po.Destination)
	fmt.Fprintf(&sb, "- Pickup: %s → Delivery: %s\n",
		po.PickupDate.Format(dateLayout), po.DeliveryDate.Format(dateLayout))
	fmt.Fprintf(&sb, "- Total: $%s\n", po.TotalAmount.String())

	sb.WriteString("\n**Invoice:**\n")
	fmt.Fprintf(&sb, "- Invoice Number: %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&sb, "- Carrier: %s\n", inv.CarrierName)
	fmt.Fprintf(&sb, "- Total: $%s\n", inv.TotalAmount.String())
	bolRef := inv.BOLNumber
	if bolRef == "" {
		bolRef = "N/A"
	}
	fmt.Fprintf(&sb, "- BOL Number Referenced: %s\n", bolRef)

	sb.WriteString("\n**Candidate Bills of Lading:**\n")
	for i, bol := range candidates {
		fmt.Fprintf(&sb, "\n[%d] BOL Number: %s\n", i, bol.BOLNumber)
		fmt.Fprintf(&sb, "- Carrier: %s\n", bol.CarrierName)
		fmt.Fprintf(&sb, "- Origin: %s → Destination: %s\n", bol.Origin, bol.Destination)
		fmt.Fprintf(&sb, "- Pickup: %s → Delivery: %s\n",
			bol.PickupDate.Format(dateLayout), bol.DeliveryDate.Format(dateLayout))
		poRef := bol.PONumber
		if poRef == "" {
			poRef = "N/A"
		}
		fmt.Fprintf(&sb, "- PO Number Referenced: %s\n", poRef)
		if len(bol.ActualCharges) > 0 {
			sb.WriteString("- Actual Charges:\n")
			writeCharges(&sb, "  ", bol.ActualCharges)
		}
	}

	sb.WriteString(`
**Your Task:**
Determine which Bill of Lading (if any) best matches this PO and Invoice. Consider:
1. Carrier name consistency (very important)
2. Origin and destination match (very important)
3. Dates consistency (pickup/delivery dates)
4. BOL number similarity to invoice's referenced BOL
5. PO number similarity to BOL's referenced PO

**Important Rules:**
- If no BOL is a reasonable match, return -1
- Be conservative - only return high confidence if the match is clear

Return a JSON object: {"best_match_index": number (-1 if none), "confidence": number 0-1, "reasoning": "2-3 sentences"}`)

	return sb.String()
}

func buildAnalyzePrompt(po model.PurchaseOrder, bol *model.BillOfLading, inv model.Invoice) string {
	var sb strings.Builder

	sb.WriteString("You are analyzing a 3-way match between a Purchase Order (PO) and an Invoice for freight/logistics services.\n\n")
	sb.WriteString("**Purchase Order:**\n")
	fmt.Fprintf(&sb, "- PO Number: %s\n", po.PONumber)
	fmt.Fprintf(&sb, "- Customer: %s\n", po.CustomerName)
	fmt.Fprintf(&sb, "- Carrier: %s\n", po.CarrierName)
	fmt.Fprintf(&sb, "- Origin: %s\n", po.Origin)
	fmt.Fprintf(&sb, "- Destination: %s\n", po.Destination)
	fmt.Fprintf(&sb, "- Pickup Date: %s\n", po.PickupDate.Format(dateLayout))
	fmt.Fprintf(&sb, "- Delivery Date: %s\n", po.DeliveryDate.Format(dateLayout))
	fmt.Fprintf(&sb, "- Total Amount: $%s\n", po.TotalAmount.String())
	sb.WriteString("- Expected Charges:\n")
	writeCharges(&sb, "  ", po.ExpectedCharges)

	sb.WriteString("\n**Invoice:**\n")
	fmt.Fprintf(&sb, "- Invoice Number: %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&sb, "- Carrier: %s\n", inv.CarrierName)
	fmt.Fprintf(&sb, "- Invoice Date: %s\n", inv.InvoiceDate.Format(dateLayout))
	fmt.Fprintf(&sb, "- PO Number Referenced: %s\n", inv.PONumber)
	fmt.Fprintf(&sb, "- Total Amount: $%s\n", inv.TotalAmount.String())
	sb.WriteString("- Charges:\n")
	writeCharges(&sb, "  ", inv.Charges)

	if bol != nil {
		sb.WriteString("\n**Bill of Lading (BOL):**\n")
		fmt.Fprintf(&sb, "- BOL Number: %s\n", bol.BOLNumber)
		fmt.Fprintf(&sb, "- Carrier: %s\n", bol.CarrierName)
		fmt.Fprintf(&sb, "- Origin: %s\n", bol.Origin)
		fmt.Fprintf(&sb, "- Destination: %s\n", bol.Destination)
		fmt.Fprintf(&sb, "- Pickup Date: %s\n", bol.PickupDate.Format(dateLayout))
		fmt.Fprintf(&sb, "- Delivery Date: %s\n", bol.DeliveryDate.Format(dateLayout))
		if len(bol.ActualCharges) > 0 {
			sb.WriteString("- Actual Charges:\n")
			writeCharges(&sb, "  ", bol.ActualCharges)
		}
	} else {
		sb.WriteString("\n**Bill of Lading:** Not available\n")
	}

	sb.WriteString(`
**Your Task:**
Analyze if the Invoice matches the Purchase Order. Consider:
1. Do the total amounts match (or are within reasonable variance)?
2. Do the line items/charges match between PO and Invoice?
3. Are the carriers consistent?
4. Does the general information align (if BOL is available)?

For freight logistics, small variances (fuel surcharges, accessorial fees) are common. Only significant discrepancies should make this not a match.

Return your analysis as a JSON object with:
- matched: boolean (true if this is a good match, false if significant discrepancies)
- confidence: number from 0-1 (how confident you are in your assessment)
- variance_amount: number (absolute dollar difference between PO and Invoice totals)
- variance_percentage: number (percentage difference)
- reasoning: string (2-3 sentences explaining your decision)
- discrepancies: array of objects with {field, po_value, bol_value, invoice_value, issue} for each discrepancy found

Return ONLY valid JSON, no markdown formatting.`)

	return sb.String()
}
