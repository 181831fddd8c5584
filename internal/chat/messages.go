package chat

import (
	"fmt"
	"strconv"

	"github.com/qurani-maai/quranchat/core/quran"
	"github.com/qurani-maai/quranchat/core/textnorm"
)

// Fixed user-visible texts.
const (
	InitialGreeting = `السلام عليكم ورحمة الله. أنا "قرآني معاي"، رفيقك في رحلة تدبر كلام الله. 📖✨ كيف يمكنني مساعدتك؟`
	NewChatGreeting = "أهلاً بك في محادثة جديدة. ✨ ماذا في خاطرك اليوم؟"

	UnexpectedErrorNotice  = "أعتذر، حدث خطأ غير متوقع. 😥 الرجاء المحاولة مرة أخرى."
	CommentaryNotFound     = "لم يتم العثور على تفسير لهذه الآية في البيانات المتوفرة."
	CommentaryFailedNotice = "عفواً، لم أتمكن من تحميل التفسير."
	FocusFailedNotice      = "عفواً، لم أتمكن من تحميل السورة."
	ShareSuffix            = " - من تطبيق قرآني معاي"
	ShareTitle             = "آية من القرآن الكريم"
	DefaultInvocation      = "بِسْمِ ٱللَّهِ ٱلرَّحْمَٰنِ ٱلرَّحِيمِ"
)

func indic(n int) string {
	return textnorm.IndicDigits(strconv.Itoa(n))
}

func continueNotice(m quran.ChapterMeta, verse int) string {
	return fmt.Sprintf("حسناً، لنتابع من بعد الآية %s من سورة %s.", indic(verse), m.CanonicalName)
}

func completeNotice(m quran.ChapterMeta) string {
	return fmt.Sprintf("ما شاء الله، لقد أتممت سورة %s. 🌸", m.CanonicalName)
}

func searchingNotice(keyword string) string {
	return fmt.Sprintf("جاري البحث عن آيات تتعلق بـ \"%s\"... ⏳", keyword)
}

func foundNotice(n int) string {
	return fmt.Sprintf("وجدت %s آية. إليك أبرزها:", indic(n))
}

func noHitsNotice(keyword string) string {
	return fmt.Sprintf("لم أعثر على آيات تذكر \"%s\" بشكل مباشر.", keyword)
}

func fetchFailedNotice(chapterID string) string {
	return fmt.Sprintf("عفواً، لم أتمكن من تحميل بيانات سورة رقم %s.", textnorm.IndicDigits(chapterID))
}

func fullChapterNotice(m quran.ChapterMeta) string {
	return fmt.Sprintf("جاري عرض سورة %s كاملة...", m.CanonicalName)
}

func commentaryHeader(m quran.ChapterMeta, verse int) string {
	return fmt.Sprintf("تفسير الآية %s من سورة %s:", indic(verse), m.CanonicalName)
}

func listenNotice(m quran.ChapterMeta, verse int) string {
	return fmt.Sprintf("ميزة الاستماع 🎧 للآية %s من %s قيد التطوير.", indic(verse), m.CanonicalName)
}

// verseInfo is the caption under a single verse: "سورة X - الآية N".
func verseInfo(m quran.ChapterMeta, verse int) string {
	return fmt.Sprintf("سورة %s - الآية %s", m.CanonicalName, indic(verse))
}

// hitInfo is the caption under a search hit: "X: N".
func hitInfo(m quran.ChapterMeta, verse int) string {
	return fmt.Sprintf("%s: %s", m.CanonicalName, indic(verse))
}

// Citation formats a verse for copying: ﴿text﴾ [name: N].
func Citation(m quran.ChapterMeta, verse int, text string) string {
	return fmt.Sprintf("﴿%s﴾ [%s: %s]", text, m.CanonicalName, indic(verse))
}

// PercentText renders a completion percentage with one decimal in Eastern
// Arabic digits, e.g. "۱.۸%".
func PercentText(p float64) string {
	return textnorm.IndicDigits(strconv.FormatFloat(p, 'f', 1, 64)) + "%"
}
