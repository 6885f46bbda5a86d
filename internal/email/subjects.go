package email

const subjectNotificationFmt = "%s | Marketplace"
