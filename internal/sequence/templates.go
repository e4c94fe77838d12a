package sequence

// VariableCatalog is the full set of variables the delivery worker supplies
// to every render. Templates may only reference names in this set; the
// registry rejects anything else at startup.
var VariableCatalog = map[string]struct{}{
	"firstName":         {},
	"company":           {},
	"website":           {},
	"score":             {},
	"criticalIssues":    {},
	"seriousIssues":     {},
	"moderateIssues":    {},
	"minorIssues":       {},
	"totalIssues":       {},
	"platform":          {},
	"topIssues":         {},
	"scanDate":          {},
	"daysUntilDeadline": {},
	"deadlineDate":      {},
	"unsubscribeUrl":    {},
}

var emailTemplates = map[string]string{
	"welcome_scan_report": `
<p>Hi {firstName},</p>
<p>Thanks for scanning {website}. Your current accessibility score is
<strong>{score}/100</strong>, with {totalIssues} issues found across the pages
we checked ({criticalIssues} critical, {seriousIssues} serious).</p>
<p>The most frequent problems were: {topIssues}.</p>
<p>Over the next few days we'll walk you through what these mean and how teams
on {platform} usually fix them.</p>
<p><a href="{unsubscribeUrl}">Unsubscribe</a></p>`,

	"welcome_issue_breakdown": `
<p>Hi {firstName},</p>
<p>Yesterday's scan of {website} surfaced {totalIssues} issues. Here is how
they break down:</p>
<ul>
<li>Critical: {criticalIssues}</li>
<li>Serious: {seriousIssues}</li>
<li>Moderate: {moderateIssues}</li>
<li>Minor: {minorIssues}</li>
</ul>
<p>Critical issues are the ones that block assistive-technology users
entirely, and they're where legal exposure concentrates.</p>
<p><a href="{unsubscribeUrl}">Unsubscribe</a></p>`,

	"welcome_deadline": `
<p>Hi {firstName},</p>
<p>The European Accessibility Act enforcement date is {deadlineDate} &mdash;
{daysUntilDeadline} days from today. Sites scoring under 70 (yours scored
{score}) typically need 4&ndash;8 weeks of remediation work.</p>
<p>If {company} wants to be ready, now is the time to start.</p>
<p><a href="{unsubscribeUrl}">Unsubscribe</a></p>`,

	"welcome_case_study": `
<p>Hi {firstName},</p>
<p>A {platform} merchant we worked with last quarter came in with
{criticalIssues} critical issues &mdash; a profile very close to {website}.
Six weeks later they passed a full WCAG 2.1 AA audit.</p>
<p>Happy to share exactly what they changed if you reply to this email.</p>
<p><a href="{unsubscribeUrl}">Unsubscribe</a></p>`,

	"welcome_last_chance": `
<p>Hi {firstName},</p>
<p>This is the last email in this series. Your scan of {website} found
{totalIssues} issues, {daysUntilDeadline} days remain before the deadline,
and our remediation slots for this month are almost full.</p>
<p>If accessibility is on the roadmap for {company}, grab a slot this week.</p>
<p><a href="{unsubscribeUrl}">Unsubscribe</a></p>`,

	"cold_intro": `
<p>Hi {firstName},</p>
<p>I ran a quick automated accessibility check on {website} and a few things
stood out that could put {company} at legal risk. Mind if I send over the
details?</p>
<p><a href="{unsubscribeUrl}">Unsubscribe</a></p>`,

	"cold_value": `
<p>Hi {firstName},</p>
<p>Digital-accessibility lawsuits keep climbing, and e-commerce is the most
targeted category. Most of the claims cite issues our scan flags
automatically &mdash; things like {topIssues}.</p>
<p>A five-minute scan of {website} would show where you stand.</p>
<p><a href="{unsubscribeUrl}">Unsubscribe</a></p>`,

	"cold_social_proof": `
<p>Hi {firstName},</p>
<p>Teams shipping on {platform} usually start with an automated audit, fix
the critical blockers, then set up monitoring so regressions get caught in
CI. We handle all three.</p>
<p>Worth a look for {company}?</p>
<p><a href="{unsubscribeUrl}">Unsubscribe</a></p>`,

	"cold_breakup": `
<p>Hi {firstName},</p>
<p>I'll stop here &mdash; no more emails from me about {website} after this
one. If accessibility compliance becomes a priority before {deadlineDate},
you know where to find us.</p>
<p><a href="{unsubscribeUrl}">Unsubscribe</a></p>`,
}
