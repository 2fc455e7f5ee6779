package report

import "fmt"

// stylesheet returns the inlined CSS. Layout selects the @page
// orientation; everything else is fixed.
func stylesheet(layout string) string {
	size := "A4"
	if layout == "landscape" {
		size = "A4 landscape"
	}
	return fmt.Sprintf(baseCSS, size)
}

const baseCSS = `@import url('https://fonts.googleapis.com/css2?family=Cairo:wght@200;300;400;600;700;900&family=Tajawal:wght@200;300;400;500;700;900&display=swap');

* { box-sizing: border-box; margin: 0; padding: 0; }

body {
  font-family: 'Cairo', 'Tajawal', -apple-system, BlinkMacSystemFont, sans-serif;
  line-height: 1.6;
  color: #1E293B;
  background: #fff;
  direction: rtl;
  text-align: right;
  font-size: 14px;
}

.page {
  max-width: 210mm;
  margin: 0 auto;
  padding: 15mm;
  min-height: 297mm;
  page-break-after: always;
  background: #fff;
}
.page:last-child { page-break-after: avoid; }

/* Intake form */
.site-visit-page { display: flex; flex-direction: column; }
.form-title {
  text-align: center;
  font-size: 28px;
  font-weight: 700;
  margin-bottom: 20px;
  text-decoration: underline;
}
.site-visit-table { width: 100%%; border-collapse: collapse; margin-bottom: 30px; }
.site-visit-table td { border: 1px solid #1E293B; padding: 10px 12px; vertical-align: top; }
.label-cell { width: 28%%; font-weight: 600; background: #F1F5F9; }
.colon-cell { width: 3%%; text-align: center; }
.duration-table { width: 100%%; border-collapse: collapse; }
.duration-table td { border: 1px solid #1E293B; padding: 6px; text-align: center; }
.duration-header { font-weight: 600; background: #F8FAFC; }
.signature-section { margin-top: 40px; }
.signature-intro { margin-bottom: 25px; }
.signature-line {
  display: flex;
  justify-content: space-between;
  border-bottom: 1px dotted #64748B;
  margin-bottom: 22px;
  padding-bottom: 6px;
}

/* Summary dashboard */
.report-header { display: flex; gap: 15px; margin-bottom: 20px; }
.header-left { flex: 3; }
.header-right { flex: 2; }
.project-main-image { width: 100%%; max-height: 260px; object-fit: cover; border: 1px solid #CBD5E1; }
.no-image-placeholder, .placeholder-image {
  display: flex;
  flex-direction: column;
  align-items: center;
  justify-content: center;
  min-height: 180px;
  border: 2px dashed #94A3B8;
  color: #64748B;
  background: #F8FAFC;
}
.placeholder-icon { font-size: 32px; }
.company-logo { max-width: 120px; }
.company-name { font-weight: 700; font-size: 16px; }
.header-info > div { margin-bottom: 10px; }
.report-main-title { text-align: center; font-size: 22px; margin: 15px 0 5px; }
.project-identifier { text-align: center; font-size: 16px; color: #475569; margin-bottom: 20px; }
.main-content { display: flex; gap: 20px; }
.notes-section { flex: 3; }
.progress-section { flex: 2; }
.section-heading { font-size: 16px; margin-bottom: 8px; border-bottom: 2px solid #1E40AF; }
.general-notes p { margin-bottom: 6px; }
.completion-percentage, .overall-percentage {
  font-size: 30px;
  font-weight: 900;
  color: #1E40AF;
  text-align: center;
}
.progress-label, .overall-label { text-align: center; margin-bottom: 10px; }
.progress-summary-table { width: 100%%; border-collapse: collapse; }
.progress-summary-table th, .progress-summary-table td { border: 1px solid #CBD5E1; padding: 5px 8px; }
.progress-summary-table th { background: #1E40AF; color: #fff; }
.progress-value { text-align: center; width: 35%%; }

/* Observations */
.page-title { text-align: center; font-size: 24px; margin-bottom: 20px; }
.observation-item {
  display: flex;
  gap: 15px;
  border: 1px solid #CBD5E1;
  margin-bottom: 18px;
  padding: 12px;
  break-inside: avoid;
}
.observation-text { flex: 3; }
.observation-image { flex: 2; }
.category-title { background: #1E40AF; color: #fff; padding: 5px 10px; font-size: 15px; }
.sub-category { margin-top: 8px; color: #1E40AF; font-size: 13px; }
.task-observation-image { width: 100%%; max-height: 220px; object-fit: cover; }

/* Progress tables */
.category-progress-section { margin-bottom: 25px; break-inside: avoid; }
.category-progress-header {
  display: flex;
  justify-content: space-between;
  align-items: center;
  background: #F1F5F9;
  padding: 8px 12px;
  margin-bottom: 8px;
}
.category-progress-percentage { font-weight: 700; color: #1E40AF; }
.category-progress-title { font-weight: 700; }
.detailed-progress-table { width: 100%%; border-collapse: collapse; }
.detailed-progress-table th, .detailed-progress-table td { border: 1px solid #CBD5E1; padding: 5px 8px; }
.detailed-progress-table th { background: #1E40AF; color: #fff; font-weight: 600; }
.current-progress, .previous-progress { text-align: center; width: 20%%; }
.notes-line { margin-top: 6px; color: #475569; }

/* Evaluation */
.evaluation-header {
  display: flex;
  justify-content: space-between;
  align-items: center;
  margin-bottom: 18px;
}
.evaluation-title { font-size: 24px; }
.evaluation-status { color: #64748B; }
.evaluation-legend { margin-bottom: 18px; }
.legend-item { display: flex; align-items: center; gap: 10px; margin-bottom: 8px; }
.legend-circle, .rating-circle {
  width: 24px;
  height: 24px;
  border-radius: 50%%;
  color: #fff;
  display: inline-flex;
  align-items: center;
  justify-content: center;
  font-size: 12px;
  font-weight: 700;
}
.red { background: #DC2626; }
.orange { background: #EA580C; }
.green { background: #16A34A; }
.rating-circles { display: flex; gap: 8px; justify-content: center; }
.evaluation-table { width: 100%%; border-collapse: collapse; }
.evaluation-table th, .evaluation-table td { border: 1px solid #CBD5E1; padding: 7px 10px; }
.evaluation-table th { background: #1E40AF; color: #fff; }
.rating-cell { width: 30%%; }
.not-available { width: 30%%; text-align: center; color: #94A3B8; }

@media print {
  .observation-item, .category-progress-section { break-inside: avoid; }
}

@page { size: %s; margin: 0; }
`
